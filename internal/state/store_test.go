package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
)

func student(id string) models.User {
	return models.User{ID: id, Email: id + "@example.com", UserMetadata: models.UserMetadata{Role: models.RoleStudent}}
}

func TestNewStoreDefaults(t *testing.T) {
	snap := New().Snapshot()
	assert.Nil(t, snap.User)
	assert.False(t, snap.ShellVisible)
	assert.Equal(t, LoginTabLogin, snap.LoginTab)
	assert.Empty(t, snap.Assignments)
}

func TestSetUserDerivesRole(t *testing.T) {
	s := New()
	s.SetUser(student("u1"))
	assert.Equal(t, models.RoleStudent, s.Role())
	assert.Equal(t, "u1", s.User().ID)
}

func TestSetDashboardForDropsStaleWrites(t *testing.T) {
	s := New()
	s.SetUser(student("u1"))

	ok := s.SetDashboardFor("u1", models.DashboardData{Stats: models.DashboardStats{ClassCount: 2}})
	assert.True(t, ok)
	assert.Equal(t, 2, s.Snapshot().Stats.ClassCount)

	s.Clear()
	ok = s.SetDashboardFor("u1", models.DashboardData{Stats: models.DashboardStats{ClassCount: 9}})
	assert.False(t, ok)
	assert.Zero(t, s.Snapshot().Stats.ClassCount)

	s.SetUser(student("u2"))
	assert.False(t, s.SetDashboardFor("u1", models.DashboardData{}))
}

func TestPatchSubmissionKeepsGrade(t *testing.T) {
	s := New()
	grade := 40.0
	s.SetAssignments([]models.AssignmentItem{
		{Assignment: models.Assignment{ID: "a1"}},
		{Assignment: models.Assignment{ID: "a2"}, Submission: &models.Submission{AssignmentID: "a2", Grade: &grade}},
	})

	now := time.Now()
	require.True(t, s.PatchSubmission(models.Submission{AssignmentID: "a1", Content: "x", SubmittedAt: &now}))
	require.True(t, s.PatchSubmission(models.Submission{AssignmentID: "a2", Content: "y", SubmittedAt: &now}))
	assert.False(t, s.PatchSubmission(models.Submission{AssignmentID: "missing"}))

	items := s.Assignments()
	assert.Equal(t, &now, items[0].SubmittedAt())
	assert.Equal(t, 40.0, *items[1].Grade())
	assert.Equal(t, "y", items[1].Submission.Content)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.SetAssignments([]models.AssignmentItem{{Assignment: models.Assignment{ID: "a1", Title: "Essay"}}})

	snap := s.Snapshot()
	snap.Assignments[0].Assignment.Title = "changed"

	assert.Equal(t, "Essay", s.Assignments()[0].Assignment.Title)
}

func TestNotificationsDrainOnce(t *testing.T) {
	s := New()
	s.Notify(models.NotificationWarning, "You are already in a class")
	s.Notify(models.NotificationInfo, "No upcoming classes")

	assert.Len(t, s.Notifications(), 2)
	drained := s.DrainNotifications()
	require.Len(t, drained, 2)
	assert.Equal(t, models.NotificationWarning, drained[0].Level)
	assert.NotEmpty(t, drained[0].ID)
	assert.Empty(t, s.DrainNotifications())
}

func TestClearResetsButKeepsNotifications(t *testing.T) {
	s := New()
	s.SetUser(student("u1"))
	s.ShowShell()
	s.SetSection("grades")
	s.SetClassroom(true, &models.Class{ID: "c1"})
	s.Notify(models.NotificationSuccess, "Signed out")

	s.Clear()
	snap := s.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Role)
	assert.False(t, snap.ShellVisible)
	assert.False(t, snap.InClass)
	assert.Equal(t, LoginTabLogin, snap.LoginTab)
	assert.Len(t, s.DrainNotifications(), 1)
}

func TestConcurrentWrites(t *testing.T) {
	s := New()
	s.SetUser(student("u1"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Notify(models.NotificationInfo, "x")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, s.DrainNotifications(), 50)
}
