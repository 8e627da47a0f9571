package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/jobs"
)

func TestDashboardTeacherStats(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)

	require.NoError(t, f.dashboard().Load(context.Background()))

	snap := f.store.Snapshot()
	assert.Len(t, snap.TeacherClasses, 2)
	assert.Equal(t, 2, snap.Stats.ClassCount)
	assert.Equal(t, 1, snap.Stats.PendingCount)
	assert.Equal(t, 0, snap.Stats.SubmissionsToGrade)
	require.NotNil(t, snap.Stats.UpcomingClass)
	assert.Equal(t, "c-math", snap.Stats.UpcomingClass.ID)
}

func TestDashboardStudentStats(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)

	require.NoError(t, f.dashboard().Load(context.Background()))

	snap := f.store.Snapshot()
	assert.Len(t, snap.EnrolledClasses, 2)
	require.Len(t, snap.PendingAssignments, 2)
	assert.Equal(t, 2, snap.Stats.PendingCount)
	require.NotNil(t, snap.Stats.AverageGrade)
	assert.InDelta(t, 90.0, *snap.Stats.AverageGrade, 0.001)
}

func TestDashboardDropsLoadForSignedOutUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc := f.dashboard()

	f.store.Clear()
	require.NoError(t, svc.LoadFor(context.Background(), teacherUser))
	assert.Empty(t, f.store.Snapshot().TeacherClasses)
}

func TestDashboardBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	f.mem.FailOn("select", "classes", &backend.ProviderError{Status: 500, Message: "relation \"classes\" does not exist"})

	err := f.dashboard().Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, `relation "classes" does not exist`, appErrors.FromError(err).Message)
}

func TestDashboardJobHandler(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc := f.dashboard()

	err := HandleDashboardJob(context.Background(), jobs.Job{Type: JobDashboardLoad, Payload: DashboardJob{Service: svc, User: studentUser}})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, f.store.Snapshot().Stats.Role)

	err = HandleDashboardJob(context.Background(), jobs.Job{Type: JobDashboardLoad, Payload: "bogus"})
	assert.Error(t, err)
}
