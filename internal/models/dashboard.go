package models

// DashboardStats feeds the dashboard cards for either role.
type DashboardStats struct {
	Role               UserRole `json:"role"`
	ClassCount         int      `json:"class_count"`
	PendingCount       int      `json:"pending_count"`
	UpcomingClass      *Class   `json:"upcoming_class,omitempty"`
	AverageGrade       *float64 `json:"average_grade,omitempty"`
	SubmissionsToGrade int      `json:"submissions_to_grade"`
}

// DashboardData is what the dashboard loader writes into the state store.
type DashboardData struct {
	TeacherClasses     []Class        `json:"teacher_classes,omitempty"`
	EnrolledClasses    []Class        `json:"enrolled_classes,omitempty"`
	PendingSubmissions []Submission   `json:"pending_submissions,omitempty"`
	PendingAssignments []Assignment   `json:"pending_assignments,omitempty"`
	Stats              DashboardStats `json:"stats"`
}
