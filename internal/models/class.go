package models

import "time"

// Class is a scheduled live lesson.
type Class struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	Schedule        time.Time `db:"schedule" json:"schedule"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	MeetingURL      *string   `db:"meeting_url" json:"meeting_url,omitempty"`
}

// EndsAt returns the scheduled end of the class.
func (c Class) EndsAt() time.Time {
	return c.Schedule.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Enrollment links a student to a class.
type Enrollment struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	ClassID    string     `db:"class_id" json:"class_id"`
	EnrolledAt *time.Time `db:"enrolled_at" json:"enrolled_at,omitempty"`
}

// CreateClassRequest is the teacher payload for scheduling a class.
type CreateClassRequest struct {
	Name            string    `json:"name" validate:"required,max=200"`
	Description     string    `json:"description"`
	Schedule        time.Time `json:"schedule" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
}
