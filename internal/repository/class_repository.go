package repository

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

const tableClasses = "classes"

// ClassRepository reads and writes the classes table.
type ClassRepository struct {
	client backend.Client
}

// NewClassRepository constructs the repository.
func NewClassRepository(client backend.Client) *ClassRepository {
	return &ClassRepository{client: client}
}

// FindByID returns a class or ErrNotFound.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	err := r.client.Select(ctx, tableClasses, backend.Query{}.Eq("id", id).SingleRow(), &class)
	if errors.Is(err, backend.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if err != nil {
		return nil, translate(err)
	}
	return &class, nil
}

// NearestUpcoming returns the single next class scheduled after now, or nil when there is none.
func (r *ClassRepository) NearestUpcoming(ctx context.Context, now time.Time) (*models.Class, error) {
	var class models.Class
	q := backend.Query{}.Where("schedule", backend.OpGt, now.UTC()).OrderBy("schedule", true).SingleRow()
	err := r.client.Select(ctx, tableClasses, q, &class)
	if errors.Is(err, backend.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &class, nil
}

// ListUpcoming returns classes scheduled after now in schedule order.
func (r *ClassRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Class, error) {
	q := backend.Query{}.Where("schedule", backend.OpGt, now.UTC()).OrderBy("schedule", true)
	if limit > 0 {
		q = q.WithLimit(limit)
	}
	var classes []models.Class
	if err := r.client.Select(ctx, tableClasses, q, &classes); err != nil {
		return nil, translate(err)
	}
	return classes, nil
}

// ListByTeacher returns the classes a teacher owns.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	var classes []models.Class
	q := backend.Query{}.Eq("teacher_id", teacherID).OrderBy("schedule", true)
	if err := r.client.Select(ctx, tableClasses, q, &classes); err != nil {
		return nil, translate(err)
	}
	return classes, nil
}

// ListByIDs returns the classes with the given ids. An empty id list makes no call.
func (r *ClassRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var classes []models.Class
	q := backend.Query{}.In("id", ids).OrderBy("schedule", true)
	if err := r.client.Select(ctx, tableClasses, q, &classes); err != nil {
		return nil, translate(err)
	}
	return classes, nil
}

// Create inserts a class and returns the stored row.
func (r *ClassRepository) Create(ctx context.Context, class models.Class) (*models.Class, error) {
	values := map[string]interface{}{
		"name":             class.Name,
		"teacher_id":       class.TeacherID,
		"schedule":         class.Schedule.UTC(),
		"duration_minutes": class.DurationMinutes,
	}
	if class.Description != nil {
		values["description"] = *class.Description
	}
	if class.MeetingURL != nil {
		values["meeting_url"] = *class.MeetingURL
	}
	var created models.Class
	if err := r.client.Insert(ctx, tableClasses, values, &created); err != nil {
		return nil, translate(err)
	}
	return &created, nil
}
