package repository

import (
	"context"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

const tableEnrollments = "enrollments"

// EnrollmentRepository reads the enrollments join table.
type EnrollmentRepository struct {
	client backend.Client
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(client backend.Client) *EnrollmentRepository {
	return &EnrollmentRepository{client: client}
}

// ListByStudent returns the student's enrollments.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var rows []models.Enrollment
	if err := r.client.Select(ctx, tableEnrollments, backend.Query{}.Eq("student_id", studentID), &rows); err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// ClassIDsForStudent is ListByStudent reduced to distinct class ids.
func (r *EnrollmentRepository) ClassIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	rows, err := r.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, e := range rows {
		if _, ok := seen[e.ClassID]; ok {
			continue
		}
		seen[e.ClassID] = struct{}{}
		ids = append(ids, e.ClassID)
	}
	return ids, nil
}
