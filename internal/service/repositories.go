package service

import (
	"context"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	NearestUpcoming(ctx context.Context, now time.Time) (*models.Class, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Class, error)
	Create(ctx context.Context, class models.Class) (*models.Class, error)
}

type assignmentRepository interface {
	ListByCreator(ctx context.Context, teacherID string) ([]models.Assignment, error)
	ListByClasses(ctx context.Context, classIDs []string) ([]models.Assignment, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Assignment, error)
	Create(ctx context.Context, a models.Assignment, now time.Time) (*models.Assignment, error)
}

type submissionRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	ListUngraded(ctx context.Context, assignmentIDs []string) ([]models.Submission, error)
	Create(ctx context.Context, assignmentID, studentID, content string, now time.Time) (*models.Submission, error)
}

type enrollmentRepository interface {
	ClassIDsForStudent(ctx context.Context, studentID string) ([]string, error)
}

func assignmentIDs(items []models.Assignment) []string {
	ids := make([]string, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	return ids
}

func firstAfter(classes []models.Class, now time.Time) *models.Class {
	var next *models.Class
	for i := range classes {
		c := classes[i]
		if !c.Schedule.After(now) {
			continue
		}
		if next == nil || c.Schedule.Before(next.Schedule) {
			next = &c
		}
	}
	return next
}
