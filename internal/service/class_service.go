package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/classroom"
	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

const defaultClassMinutes = 60

// ClassService schedules classes and lists the upcoming ones.
type ClassService struct {
	classes        classRepository
	enrollments    enrollmentRepository
	store          *state.Store
	dashboard      *DashboardService
	events         events.Publisher
	meetingBaseURL string
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewClassService constructs ClassService.
func NewClassService(classes classRepository, enrollments enrollmentRepository, store *state.Store, dashboard *DashboardService, publisher events.Publisher, meetingBaseURL string, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ClassService{
		classes:        classes,
		enrollments:    enrollments,
		store:          store,
		dashboard:      dashboard,
		events:         publisher,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		validator:      validate,
		logger:         logger,
		now:            time.Now,
	}
}

// OnSectionChanged refreshes the teacher's class list when "My Classes" is shown.
func (s *ClassService) OnSectionChanged(ctx context.Context, section string) error {
	if section != navigation.SectionClasses {
		return nil
	}
	user := s.store.User()
	if user == nil || user.Role() != models.RoleTeacher {
		return nil
	}
	classes, err := s.classes.ListByTeacher(ctx, user.ID)
	if err != nil {
		return err
	}
	s.store.SetTeacherClasses(classes)
	return nil
}

// CreateClass schedules a class with a freshly generated meeting link. Teachers only.
func (s *ClassService) CreateClass(ctx context.Context, req models.CreateClassRequest) (*models.Class, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if user.Role() != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only teachers can schedule classes")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		msg := "Please provide a class name and schedule"
		s.store.Notify(models.NotificationError, msg)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
	}

	meetingID, err := classroom.GenerateMeetingID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate meeting id")
	}
	meetingURL := s.meetingBaseURL + "/" + meetingID
	class := models.Class{
		Name:            req.Name,
		TeacherID:       user.ID,
		Schedule:        req.Schedule,
		DurationMinutes: req.DurationMinutes,
		MeetingURL:      &meetingURL,
	}
	if class.DurationMinutes <= 0 {
		class.DurationMinutes = defaultClassMinutes
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		class.Description = &desc
	}

	created, err := s.classes.Create(ctx, class)
	if err != nil {
		s.logger.Error("create class failed", zap.String("user_id", user.ID), zap.Error(err))
		s.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		return nil, err
	}

	s.store.SetTeacherClasses(append(s.store.TeacherClasses(), *created))
	s.store.Notify(models.NotificationSuccess, "Class scheduled successfully")
	if err := s.events.Publish(ctx, events.New(events.TypeClassCreated, user.ID, map[string]interface{}{
		"class_id":   created.ID,
		"meeting_id": meetingID,
	})); err != nil {
		s.logger.Warn("publish class.created failed", zap.Error(err))
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateAll(ctx)
	}
	return created, nil
}

// ListUpcoming returns the caller's classes scheduled after now: a teacher's own, or a student's enrolled ones.
func (s *ClassService) ListUpcoming(ctx context.Context, limit int) ([]models.Class, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	upcoming, err := s.classes.ListUpcoming(ctx, s.now(), 0)
	if err != nil {
		return nil, err
	}

	keep := func(models.Class) bool { return false }
	switch user.Role() {
	case models.RoleTeacher:
		keep = func(c models.Class) bool { return c.TeacherID == user.ID }
	case models.RoleStudent:
		ids, err := s.enrollments.ClassIDsForStudent(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		enrolled := make(map[string]bool, len(ids))
		for _, id := range ids {
			enrolled[id] = true
		}
		keep = func(c models.Class) bool { return enrolled[c.ID] }
	}

	out := make([]models.Class, 0, len(upcoming))
	for _, c := range upcoming {
		if !keep(c) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		s.store.Notify(models.NotificationInfo, "No upcoming classes scheduled")
	}
	return out, nil
}
