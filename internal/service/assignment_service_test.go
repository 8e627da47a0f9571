package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

func newAssignmentServiceForTest(f *fixture) (*AssignmentService, *events.Recorder) {
	rec := &events.Recorder{}
	svc := NewAssignmentService(f.classes, f.assignments, f.submissions, f.enrollments, f.store, f.dashboard(), rec, nil, nil)
	svc.now = func() time.Time { return f.now }
	return svc, rec
}

func TestAssignmentLoadTeacher(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _ := newAssignmentServiceForTest(f)

	require.NoError(t, svc.Load(context.Background()))
	items := f.store.Assignments()
	require.Len(t, items, 3)
	for _, item := range items {
		assert.NotEmpty(t, item.ClassName)
		assert.Nil(t, item.Submission)
	}
}

func TestAssignmentLoadStudentJoinsSubmissions(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _ := newAssignmentServiceForTest(f)

	require.NoError(t, svc.Load(context.Background()))
	items := f.store.Assignments()
	require.Len(t, items, 3)

	graded := 0
	for _, item := range items {
		if item.Assignment.ID == "a-essay" {
			require.NotNil(t, item.Submission)
			require.NotNil(t, item.Grade())
			graded++
		}
	}
	assert.Equal(t, 1, graded)

	pending := svc.List(grading.FilterPending)
	assert.Len(t, pending.Items, 2)
	assert.Equal(t, grading.FilterPending, pending.Filter)
	assert.Contains(t, string(pending.HTML), "Quiz 1")

	all := svc.List(grading.ParseFilter("bogus"))
	assert.Len(t, all.Items, 3)
}

func TestCreateAssignmentTeachersOnly(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _ := newAssignmentServiceForTest(f)

	form, err := svc.CreateAssignment(context.Background())
	assert.Nil(t, form)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	notes := f.store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Only teachers can create assignments", notes[0].Message)
	assert.Empty(t, f.mem.Calls())
}

func TestCreateAssignmentFormListsTeacherClasses(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _ := newAssignmentServiceForTest(f)

	form, err := svc.CreateAssignment(context.Background())
	require.NoError(t, err)
	assert.Len(t, form.Classes, 2)
	assert.Equal(t, models.DefaultMaxPoints, form.DefaultMaxPoints)
}

func TestSaveAssignmentValidation(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _ := newAssignmentServiceForTest(f)

	_, err := svc.SaveAssignment(context.Background(), models.CreateAssignmentRequest{Title: "  ", ClassID: "c-math", DueDate: f.now})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Len(t, f.mem.Rows("assignments"), 3)
}

func TestSaveAssignmentInsertsAndReloads(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, rec := newAssignmentServiceForTest(f)

	created, err := svc.SaveAssignment(context.Background(), models.CreateAssignmentRequest{
		Title:       "Chapter 4 problems",
		Description: "Odd numbers only",
		DueDate:     f.now.Add(96 * time.Hour),
		ClassID:     "c-math",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, models.DefaultMaxPoints, created.MaxPoints)
	assert.Equal(t, teacherUser.ID, created.CreatedBy)

	assert.Len(t, f.mem.Rows("assignments"), 4)
	assert.Len(t, f.store.Assignments(), 4)
	assert.Equal(t, []events.Type{events.TypeAssignmentCreated}, rec.Types())
}

func TestSubmitAssignmentIgnoresBlankContent(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _ := newAssignmentServiceForTest(f)

	sub, err := svc.SubmitAssignment(context.Background(), "a-quiz", " \n\t")
	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, f.mem.Calls())
	assert.Empty(t, f.store.Notifications())
}

func TestSubmitAssignmentStudentsOnly(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _ := newAssignmentServiceForTest(f)

	_, err := svc.SubmitAssignment(context.Background(), "a-quiz", "answer")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestSubmitAssignmentPatchesCachedItem(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, rec := newAssignmentServiceForTest(f)
	require.NoError(t, svc.Load(context.Background()))
	callsBefore := len(f.mem.Calls())

	sub, err := svc.SubmitAssignment(context.Background(), "a-quiz", "x = 4")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "x = 4", sub.Content)

	// one insert, no reload
	assert.Equal(t, []string{"insert:submissions"}, f.mem.Calls()[callsBefore:])

	var patched *models.AssignmentItem
	for _, item := range f.store.Assignments() {
		if item.Assignment.ID == "a-quiz" {
			copied := item
			patched = &copied
		}
	}
	require.NotNil(t, patched)
	require.NotNil(t, patched.Submission)
	assert.NotNil(t, patched.SubmittedAt())
	assert.Nil(t, patched.Grade())
	assert.Equal(t, []events.Type{events.TypeSubmissionCreated}, rec.Types())
}
