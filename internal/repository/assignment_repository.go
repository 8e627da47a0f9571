package repository

import (
	"context"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

const tableAssignments = "assignments"

// AssignmentRepository reads and writes the assignments table.
type AssignmentRepository struct {
	client backend.Client
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(client backend.Client) *AssignmentRepository {
	return &AssignmentRepository{client: client}
}

// ListByCreator returns every assignment a teacher created, soonest due first.
func (r *AssignmentRepository) ListByCreator(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	var items []models.Assignment
	q := backend.Query{}.Eq("created_by", teacherID).OrderBy("due_date", true)
	if err := r.client.Select(ctx, tableAssignments, q, &items); err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// ListByClasses returns the assignments of the given classes, soonest due first.
func (r *AssignmentRepository) ListByClasses(ctx context.Context, classIDs []string) ([]models.Assignment, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	var items []models.Assignment
	q := backend.Query{}.In("class_id", classIDs).OrderBy("due_date", true)
	if err := r.client.Select(ctx, tableAssignments, q, &items); err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// ListByIDs fetches specific assignments.
func (r *AssignmentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Assignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Assignment
	if err := r.client.Select(ctx, tableAssignments, backend.Query{}.In("id", ids), &items); err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// Create inserts an assignment. created_at is stamped here; the row is immutable afterwards.
func (r *AssignmentRepository) Create(ctx context.Context, a models.Assignment, now time.Time) (*models.Assignment, error) {
	values := map[string]interface{}{
		"title":      a.Title,
		"due_date":   a.DueDate.UTC(),
		"max_points": a.MaxPoints,
		"class_id":   a.ClassID,
		"created_by": a.CreatedBy,
		"created_at": now.UTC(),
	}
	if a.Description != nil {
		values["description"] = *a.Description
	}
	var created models.Assignment
	if err := r.client.Insert(ctx, tableAssignments, values, &created); err != nil {
		return nil, translate(err)
	}
	return &created, nil
}
