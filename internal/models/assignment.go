package models

import "time"

// DefaultMaxPoints applies when a teacher leaves max points blank.
const DefaultMaxPoints = 100

// Assignment is created by a teacher and immutable afterwards.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	MaxPoints   int       `db:"max_points" json:"max_points"`
	ClassID     string    `db:"class_id" json:"class_id"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Submission is a student's answer to an assignment. Grade and feedback are set by a separate teacher flow.
type Submission struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignment_id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Content      string     `db:"content" json:"content"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	Grade        *float64   `db:"grade" json:"grade,omitempty"`
	Feedback     *string    `db:"feedback" json:"feedback,omitempty"`
}

// AssignmentItem is a cached assignment joined with the current student's submission, if any.
type AssignmentItem struct {
	Assignment Assignment  `json:"assignment"`
	Submission *Submission `json:"submission,omitempty"`
	ClassName  string      `json:"class_name,omitempty"`
}

// SubmittedAt returns the submission timestamp when present.
func (i AssignmentItem) SubmittedAt() *time.Time {
	if i.Submission == nil {
		return nil
	}
	return i.Submission.SubmittedAt
}

// Grade returns the submission grade when present.
func (i AssignmentItem) Grade() *float64 {
	if i.Submission == nil {
		return nil
	}
	return i.Submission.Grade
}

// GradebookRow joins one submission with its assignment.
type GradebookRow struct {
	Submission Submission `json:"submission"`
	Assignment Assignment `json:"assignment"`
}

// CreateAssignmentRequest is the form payload for a new assignment.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxPoints   int       `json:"max_points" validate:"omitempty,min=1,max=10000"`
	ClassID     string    `json:"class_id" validate:"required"`
}

// SubmitAssignmentRequest carries the student's free-text answer.
type SubmitAssignmentRequest struct {
	Content string `json:"content"`
}

// AssignmentForm is what a teacher needs to render the create modal.
type AssignmentForm struct {
	Classes          []Class `json:"classes"`
	DefaultMaxPoints int     `json:"default_max_points"`
}
