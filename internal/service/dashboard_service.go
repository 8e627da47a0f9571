package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/state"
	"github.com/noah-isme/edumeet/pkg/cache"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/jobs"
)

// JobDashboardLoad is the job type of the post-sign-in dashboard load.
const JobDashboardLoad = "dashboard.load"

// DashboardJob is the payload of a JobDashboardLoad job.
type DashboardJob struct {
	Service *DashboardService
	User    models.User
}

// HandleDashboardJob runs a queued dashboard load.
func HandleDashboardJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(DashboardJob)
	if !ok || payload.Service == nil {
		return fmt.Errorf("dashboard job: unexpected payload %T", job.Payload)
	}
	return payload.Service.LoadFor(ctx, payload.User)
}

// DashboardService assembles the role-specific dashboard lists and stats.
type DashboardService struct {
	classes     classRepository
	assignments assignmentRepository
	submissions submissionRepository
	enrollments enrollmentRepository
	store       *state.Store
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs DashboardService. cache may be nil.
func NewDashboardService(classes classRepository, assignments assignmentRepository, submissions submissionRepository, enrollments enrollmentRepository, store *state.Store, cacheSvc *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		classes:     classes,
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		store:       store,
		cache:       cacheSvc,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func dashboardCacheKey(user models.User) string {
	return cache.Key("dashboard", string(user.Role()), user.ID)
}

// InvalidateAll drops every cached dashboard; called after writes that change other users' views.
func (s *DashboardService) InvalidateAll(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.Key("dashboard", "*"))
}

// OnSectionChanged reloads the dashboard whenever it becomes visible.
func (s *DashboardService) OnSectionChanged(ctx context.Context, section string) error {
	if section != navigation.SectionDashboard {
		return nil
	}
	return s.Load(ctx)
}

// Load refreshes the dashboard for the signed-in user.
func (s *DashboardService) Load(ctx context.Context) error {
	user := s.store.User()
	if user == nil {
		return appErrors.ErrUnauthorized
	}
	return s.LoadFor(ctx, *user)
}

// LoadFor builds the dashboard for user and writes it only if user is still signed in.
func (s *DashboardService) LoadFor(ctx context.Context, user models.User) error {
	data, hit, err := s.Build(ctx, user)
	if err != nil {
		s.logger.Warn("dashboard load failed", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}
	if !s.store.SetDashboardFor(user.ID, data) {
		s.logger.Debug("discarding stale dashboard load", zap.String("user_id", user.ID))
		return nil
	}
	s.logger.Debug("dashboard loaded", zap.String("user_id", user.ID), zap.Bool("cache_hit", hit))
	return nil
}

// Build computes the dashboard without touching the store. The bool reports a cache hit.
func (s *DashboardService) Build(ctx context.Context, user models.User) (models.DashboardData, bool, error) {
	key := dashboardCacheKey(user)
	var cached models.DashboardData
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	var (
		data models.DashboardData
		err  error
	)
	switch user.Role() {
	case models.RoleTeacher:
		data, err = s.buildTeacher(ctx, user)
	case models.RoleStudent:
		data, err = s.buildStudent(ctx, user)
	default:
		return models.DashboardData{}, false, appErrors.Clone(appErrors.ErrForbidden, "role required")
	}
	if err != nil {
		return models.DashboardData{}, false, err
	}
	_ = s.cache.Set(ctx, key, data, s.cacheTTL)
	return data, false, nil
}

func (s *DashboardService) buildTeacher(ctx context.Context, user models.User) (models.DashboardData, error) {
	now := s.now()
	classes, err := s.classes.ListByTeacher(ctx, user.ID)
	if err != nil {
		return models.DashboardData{}, err
	}
	created, err := s.assignments.ListByCreator(ctx, user.ID)
	if err != nil {
		return models.DashboardData{}, err
	}
	toGrade, err := s.submissions.ListUngraded(ctx, assignmentIDs(created))
	if err != nil {
		return models.DashboardData{}, err
	}

	open := 0
	for _, a := range created {
		if a.DueDate.After(now) {
			open++
		}
	}
	return models.DashboardData{
		TeacherClasses:     classes,
		PendingSubmissions: toGrade,
		Stats: models.DashboardStats{
			Role:               models.RoleTeacher,
			ClassCount:         len(classes),
			PendingCount:       open,
			UpcomingClass:      firstAfter(classes, now),
			SubmissionsToGrade: len(toGrade),
		},
	}, nil
}

func (s *DashboardService) buildStudent(ctx context.Context, user models.User) (models.DashboardData, error) {
	now := s.now()
	classIDs, err := s.enrollments.ClassIDsForStudent(ctx, user.ID)
	if err != nil {
		return models.DashboardData{}, err
	}
	classes, err := s.classes.ListByIDs(ctx, classIDs)
	if err != nil {
		return models.DashboardData{}, err
	}
	assignments, err := s.assignments.ListByClasses(ctx, classIDs)
	if err != nil {
		return models.DashboardData{}, err
	}
	subs, err := s.submissions.ListByStudent(ctx, user.ID)
	if err != nil {
		return models.DashboardData{}, err
	}

	byAssignment := make(map[string]models.Assignment, len(assignments))
	for _, a := range assignments {
		byAssignment[a.ID] = a
	}
	submitted := make(map[string]bool, len(subs))
	rows := make([]models.GradebookRow, 0, len(subs))
	for _, sub := range subs {
		submitted[sub.AssignmentID] = true
		if a, ok := byAssignment[sub.AssignmentID]; ok {
			rows = append(rows, models.GradebookRow{Submission: sub, Assignment: a})
		}
	}
	var pending []models.Assignment
	for _, a := range assignments {
		if !submitted[a.ID] {
			pending = append(pending, a)
		}
	}

	stats := models.DashboardStats{
		Role:          models.RoleStudent,
		ClassCount:    len(classes),
		PendingCount:  len(pending),
		UpcomingClass: firstAfter(classes, now),
	}
	if avg, ok := grading.Average(rows); ok {
		stats.AverageGrade = &avg
	}
	return models.DashboardData{
		EnrolledClasses:    classes,
		PendingAssignments: pending,
		Stats:              stats,
	}, nil
}
