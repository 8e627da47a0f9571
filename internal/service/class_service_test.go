package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

func newClassServiceForTest(f *fixture) (*ClassService, *events.Recorder) {
	rec := &events.Recorder{}
	svc := NewClassService(f.classes, f.enrollments, f.store, f.dashboard(), rec, "https://meet.example.com/", nil, nil)
	svc.now = func() time.Time { return f.now }
	return svc, rec
}

func TestCreateClassGeneratesMeetingURL(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, rec := newClassServiceForTest(f)

	created, err := svc.CreateClass(context.Background(), models.CreateClassRequest{Name: "Chemistry", Schedule: f.now.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, created.MeetingURL)
	assert.Regexp(t, regexp.MustCompile(`^https://meet\.example\.com/edumeet-[a-z0-9]{10}$`), *created.MeetingURL)
	assert.Equal(t, 60, created.DurationMinutes)
	assert.Equal(t, teacherUser.ID, created.TeacherID)
	assert.Len(t, f.mem.Rows("classes"), 4)
	assert.Len(t, f.store.TeacherClasses(), 1)
	assert.Equal(t, []events.Type{events.TypeClassCreated}, rec.Types())
}

func TestCreateClassTeachersOnly(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _ := newClassServiceForTest(f)

	_, err := svc.CreateClass(context.Background(), models.CreateClassRequest{Name: "Chemistry", Schedule: f.now})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Len(t, f.mem.Rows("classes"), 3)
}

func TestListUpcomingFiltersByRole(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _ := newClassServiceForTest(f)

	classes, err := svc.ListUpcoming(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "c-math", classes[0].ID)

	f.signIn(studentUser)
	classes, err = svc.ListUpcoming(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "c-math", classes[0].ID)
}

func TestListUpcomingEmptyNotifies(t *testing.T) {
	f := newFixture(t)
	f.signIn(models.User{ID: "student-9", Email: "x@example.com", UserMetadata: models.UserMetadata{Role: models.RoleStudent}})
	svc, _ := newClassServiceForTest(f)

	classes, err := svc.ListUpcoming(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, classes)
	notes := f.store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "No upcoming classes scheduled", notes[0].Message)
}
