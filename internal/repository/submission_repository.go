package repository

import (
	"context"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

const tableSubmissions = "submissions"

// SubmissionRepository reads and writes the submissions table.
type SubmissionRepository struct {
	client backend.Client
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(client backend.Client) *SubmissionRepository {
	return &SubmissionRepository{client: client}
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var subs []models.Submission
	q := backend.Query{}.Eq("student_id", studentID).OrderBy("submitted_at", false)
	if err := r.client.Select(ctx, tableSubmissions, q, &subs); err != nil {
		return nil, translate(err)
	}
	return subs, nil
}

// ListUngraded returns the submissions of the given assignments that still lack a grade.
func (r *SubmissionRepository) ListUngraded(ctx context.Context, assignmentIDs []string) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	var subs []models.Submission
	q := backend.Query{}.In("assignment_id", assignmentIDs).Where("grade", backend.OpIs, nil).OrderBy("submitted_at", true)
	if err := r.client.Select(ctx, tableSubmissions, q, &subs); err != nil {
		return nil, translate(err)
	}
	return subs, nil
}

// Create writes one submission for (assignment, student). Uniqueness is the backend's job.
func (r *SubmissionRepository) Create(ctx context.Context, assignmentID, studentID, content string, now time.Time) (*models.Submission, error) {
	values := map[string]interface{}{
		"assignment_id": assignmentID,
		"student_id":    studentID,
		"content":       content,
		"submitted_at":  now.UTC(),
	}
	var created models.Submission
	if err := r.client.Insert(ctx, tableSubmissions, values, &created); err != nil {
		return nil, translate(err)
	}
	return &created, nil
}
