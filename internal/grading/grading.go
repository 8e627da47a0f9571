// Package grading holds the pure grade and status rules used by every renderer and export.
package grading

import (
	"time"

	"github.com/noah-isme/edumeet/internal/models"
)

// Status is the derived state of an assignment for one student.
type Status string

const (
	StatusGraded    Status = "graded"
	StatusSubmitted Status = "submitted"
	StatusOverdue   Status = "overdue"
	StatusPending   Status = "pending"
)

// Label is the user-facing status text.
func (s Status) Label() string {
	switch s {
	case StatusGraded:
		return "Graded"
	case StatusSubmitted:
		return "Submitted"
	case StatusOverdue:
		return "Overdue"
	default:
		return "Pending"
	}
}

// Filter selects assignments in the list view.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterSubmitted Filter = "submitted"
	FilterGraded    Filter = "graded"
)

// ParseFilter maps unknown tags to FilterAll.
func ParseFilter(raw string) Filter {
	switch f := Filter(raw); f {
	case FilterPending, FilterSubmitted, FilterGraded:
		return f
	default:
		return FilterAll
	}
}

type band struct {
	min    float64
	letter string
}

var letterBands = []band{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {73, "C"}, {70, "C-"},
	{67, "D+"}, {63, "D"}, {60, "D-"},
}

// Percentage is grade/maxPoints*100, or 0 when ungraded or maxPoints is not positive.
func Percentage(grade *float64, maxPoints int) float64 {
	if grade == nil || maxPoints <= 0 {
		return 0
	}
	return *grade / float64(maxPoints) * 100
}

// LetterGrade maps a percentage to a letter using a fixed descending table; below 60 is F.
func LetterGrade(percentage float64) string {
	for _, b := range letterBands {
		if percentage >= b.min {
			return b.letter
		}
	}
	return "F"
}

// Average is the unweighted mean percentage over graded rows only. ok is false when nothing is graded.
func Average(rows []models.GradebookRow) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, r := range rows {
		if r.Submission.Grade == nil {
			continue
		}
		sum += Percentage(r.Submission.Grade, r.Assignment.MaxPoints)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// StatusOf applies graded > submitted > overdue > pending; the first match wins.
func StatusOf(dueDate time.Time, submittedAt *time.Time, grade *float64, now time.Time) Status {
	switch {
	case grade != nil:
		return StatusGraded
	case submittedAt != nil:
		return StatusSubmitted
	case now.After(dueDate):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// ItemStatus derives the status of a cached assignment item.
func ItemStatus(item models.AssignmentItem, now time.Time) Status {
	return StatusOf(item.Assignment.DueDate, item.SubmittedAt(), item.Grade(), now)
}

// Matches reports whether a status passes the list filter. Overdue items show under pending.
func (f Filter) Matches(s Status) bool {
	switch f {
	case FilterPending:
		return s == StatusPending || s == StatusOverdue
	case FilterSubmitted:
		return s == StatusSubmitted || s == StatusGraded
	case FilterGraded:
		return s == StatusGraded
	default:
		return true
	}
}

// Apply filters items in order.
func Apply(items []models.AssignmentItem, f Filter, now time.Time) []models.AssignmentItem {
	out := make([]models.AssignmentItem, 0, len(items))
	for _, item := range items {
		if f.Matches(ItemStatus(item, now)) {
			out = append(out, item)
		}
	}
	return out
}
