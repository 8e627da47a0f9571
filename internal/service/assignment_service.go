package service

import (
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/render"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

const msgTeachersOnly = "Only teachers can create assignments"

// AssignmentList is the filtered view of the cached assignment list.
type AssignmentList struct {
	Filter grading.Filter          `json:"filter"`
	Items  []models.AssignmentItem `json:"items"`
	HTML   template.HTML           `json:"html"`
}

// AssignmentService covers the assignment list, creation and student submissions.
type AssignmentService struct {
	classes     classRepository
	assignments assignmentRepository
	submissions submissionRepository
	enrollments enrollmentRepository
	store       *state.Store
	dashboard   *DashboardService
	events      events.Publisher
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(classes classRepository, assignments assignmentRepository, submissions submissionRepository, enrollments enrollmentRepository, store *state.Store, dashboard *DashboardService, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &AssignmentService{
		classes:     classes,
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		store:       store,
		dashboard:   dashboard,
		events:      publisher,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// OnSectionChanged reloads the list when the assignments section is shown.
func (s *AssignmentService) OnSectionChanged(ctx context.Context, section string) error {
	if section != navigation.SectionAssignments {
		return nil
	}
	return s.Load(ctx)
}

// Load fetches the role-specific assignment list into the store.
// Teachers see what they created; students see their classes' assignments joined with their own submissions.
func (s *AssignmentService) Load(ctx context.Context) error {
	user := s.store.User()
	if user == nil {
		return appErrors.ErrUnauthorized
	}

	var (
		items []models.AssignmentItem
		err   error
	)
	switch user.Role() {
	case models.RoleTeacher:
		items, err = s.loadTeacher(ctx, user.ID)
	case models.RoleStudent:
		items, err = s.loadStudent(ctx, user.ID)
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role required")
	}
	if err != nil {
		s.logger.Warn("assignment load failed", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}
	s.store.SetAssignments(items)
	return nil
}

func (s *AssignmentService) loadTeacher(ctx context.Context, teacherID string) ([]models.AssignmentItem, error) {
	created, err := s.assignments.ListByCreator(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	names := classNames(classes)
	items := make([]models.AssignmentItem, len(created))
	for i, a := range created {
		items[i] = models.AssignmentItem{Assignment: a, ClassName: names[a.ClassID]}
	}
	return items, nil
}

func (s *AssignmentService) loadStudent(ctx context.Context, studentID string) ([]models.AssignmentItem, error) {
	classIDs, err := s.enrollments.ClassIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	classes, err := s.classes.ListByIDs(ctx, classIDs)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByClasses(ctx, classIDs)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	byAssignment := make(map[string]models.Submission, len(subs))
	for _, sub := range subs {
		byAssignment[sub.AssignmentID] = sub
	}
	names := classNames(classes)
	items := make([]models.AssignmentItem, len(assignments))
	for i, a := range assignments {
		item := models.AssignmentItem{Assignment: a, ClassName: names[a.ClassID]}
		if sub, ok := byAssignment[a.ID]; ok {
			copied := sub
			item.Submission = &copied
		}
		items[i] = item
	}
	return items, nil
}

func classNames(classes []models.Class) map[string]string {
	names := make(map[string]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}
	return names
}

// List filters the cached list. It never calls the backend.
func (s *AssignmentService) List(filter grading.Filter) AssignmentList {
	now := s.now()
	items := s.store.Assignments()
	return AssignmentList{
		Filter: filter,
		Items:  grading.Apply(items, filter, now),
		HTML:   render.Assignments(items, filter, s.store.Role(), now),
	}
}

// CreateAssignment opens the create form. Non-teachers get a rejection notification and no form.
func (s *AssignmentService) CreateAssignment(ctx context.Context) (*models.AssignmentForm, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if user.Role() != models.RoleTeacher {
		s.store.Notify(models.NotificationError, msgTeachersOnly)
		return nil, appErrors.Clone(appErrors.ErrForbidden, msgTeachersOnly)
	}
	classes, err := s.classes.ListByTeacher(ctx, user.ID)
	if err != nil {
		s.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		return nil, err
	}
	s.store.SetTeacherClasses(classes)
	return &models.AssignmentForm{Classes: classes, DefaultMaxPoints: models.DefaultMaxPoints}, nil
}

// SaveAssignment validates and inserts a new assignment, then reloads the cached list.
func (s *AssignmentService) SaveAssignment(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if user.Role() != models.RoleTeacher {
		s.store.Notify(models.NotificationError, msgTeachersOnly)
		return nil, appErrors.Clone(appErrors.ErrForbidden, msgTeachersOnly)
	}

	req.Title = strings.TrimSpace(req.Title)
	req.ClassID = strings.TrimSpace(req.ClassID)
	if err := s.validator.Struct(req); err != nil {
		msg := "Please fill in the title, due date and class"
		s.store.Notify(models.NotificationError, msg)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
	}

	assignment := models.Assignment{
		Title:     req.Title,
		DueDate:   req.DueDate,
		MaxPoints: req.MaxPoints,
		ClassID:   req.ClassID,
		CreatedBy: user.ID,
	}
	if assignment.MaxPoints <= 0 {
		assignment.MaxPoints = models.DefaultMaxPoints
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		assignment.Description = &desc
	}

	created, err := s.assignments.Create(ctx, assignment, s.now())
	if err != nil {
		s.logger.Error("create assignment failed", zap.String("user_id", user.ID), zap.Error(err))
		s.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		return nil, err
	}

	s.store.Notify(models.NotificationSuccess, "Assignment created successfully")
	if err := s.events.Publish(ctx, events.New(events.TypeAssignmentCreated, user.ID, map[string]interface{}{
		"assignment_id": created.ID,
		"class_id":      created.ClassID,
	})); err != nil {
		s.logger.Warn("publish assignment.created failed", zap.Error(err))
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateAll(ctx)
	}
	if err := s.Load(ctx); err != nil {
		s.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
	}
	return created, nil
}

// SubmitAssignment records the student's answer. Blank content is ignored.
// On success the cached item is patched in place; grade and feedback are not re-fetched.
func (s *AssignmentService) SubmitAssignment(ctx context.Context, assignmentID, content string) (*models.Submission, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if user.Role() != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only students can submit assignments")
	}
	if strings.TrimSpace(assignmentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment id is required")
	}

	sub, err := s.submissions.Create(ctx, assignmentID, user.ID, content, s.now())
	if err != nil {
		s.logger.Error("submit assignment failed", zap.String("assignment_id", assignmentID), zap.Error(err))
		s.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		return nil, err
	}

	s.store.PatchSubmission(*sub)
	s.store.Notify(models.NotificationSuccess, "Assignment submitted successfully")
	if err := s.events.Publish(ctx, events.New(events.TypeSubmissionCreated, user.ID, map[string]interface{}{
		"assignment_id": assignmentID,
		"submission_id": sub.ID,
	})); err != nil {
		s.logger.Warn("publish submission.created failed", zap.Error(err))
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateAll(ctx)
	}
	return sub, nil
}
