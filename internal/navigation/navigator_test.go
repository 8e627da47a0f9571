package navigation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

func navIDs(items []NavItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestRefreshNavByRole(t *testing.T) {
	n := NewNavigator(state.New(), nil)

	teacher := navIDs(n.RefreshNav(models.RoleTeacher))
	assert.Contains(t, teacher, SectionCreateAssignment)
	assert.Contains(t, teacher, SectionClasses)
	assert.NotContains(t, teacher, SectionGrades)

	student := navIDs(n.RefreshNav(models.RoleStudent))
	assert.Contains(t, student, SectionGrades)
	assert.NotContains(t, student, SectionCreateAssignment)

	for _, ids := range [][]string{teacher, student} {
		assert.Contains(t, ids, SectionDashboard)
		assert.Contains(t, ids, SectionAssignments)
		assert.Contains(t, ids, SectionClassroom)
	}

	assert.Empty(t, n.RefreshNav(""))
}

func TestShowSectionCallsListenersInOrder(t *testing.T) {
	store := state.New()
	n := NewNavigator(store, nil)
	n.RefreshNav(models.RoleStudent)

	var calls []string
	n.Subscribe(ListenerFunc(func(_ context.Context, s string) error {
		calls = append(calls, "first:"+s)
		return nil
	}))
	unsubscribe := n.Subscribe(ListenerFunc(func(_ context.Context, s string) error {
		calls = append(calls, "second:"+s)
		return nil
	}))
	n.Subscribe(ListenerFunc(func(_ context.Context, s string) error {
		calls = append(calls, "third:"+s)
		return nil
	}))

	view, err := n.ShowSection(context.Background(), SectionGrades)
	require.NoError(t, err)
	assert.Equal(t, []string{"first:grades", "second:grades", "third:grades"}, calls)
	assert.Equal(t, SectionGrades, store.Section())
	assert.Equal(t, SectionGrades, view.Section)

	visible := 0
	for _, s := range view.Sections {
		if s.Visible {
			visible++
			assert.Equal(t, SectionGrades, s.ID)
		}
	}
	assert.Equal(t, 1, visible)

	active := 0
	for _, item := range view.Nav {
		if item.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)

	calls = nil
	unsubscribe()
	_, err = n.ShowSection(context.Background(), SectionDashboard)
	require.NoError(t, err)
	assert.Equal(t, []string{"first:dashboard", "third:dashboard"}, calls)
}

func TestShowSectionListenerErrorBecomesNotification(t *testing.T) {
	store := state.New()
	n := NewNavigator(store, nil)
	n.RefreshNav(models.RoleTeacher)

	var reached bool
	n.Subscribe(ListenerFunc(func(context.Context, string) error { return errors.New("relation \"assignments\" does not exist") }))
	n.Subscribe(ListenerFunc(func(context.Context, string) error { reached = true; return nil }))

	_, err := n.ShowSection(context.Background(), SectionAssignments)
	require.NoError(t, err)
	assert.True(t, reached)

	notes := store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationError, notes[0].Level)
}

func TestShowSectionRejectsUnknownAndHidden(t *testing.T) {
	n := NewNavigator(state.New(), nil)
	n.RefreshNav(models.RoleStudent)

	_, err := n.ShowSection(context.Background(), "settings")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = n.ShowSection(context.Background(), SectionCreateAssignment)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestShowSectionRendersFragment(t *testing.T) {
	store := state.New()
	store.SetUser(models.User{ID: "u1", UserMetadata: models.UserMetadata{Role: models.RoleTeacher, FullName: "Ms Frizzle"}})
	store.SetDashboardFor("u1", models.DashboardData{TeacherClasses: []models.Class{{ID: "c1", Name: "Biology"}}})
	n := NewNavigator(store, nil)
	n.RefreshNav(models.RoleTeacher)

	view, err := n.ShowSection(context.Background(), SectionDashboard)
	require.NoError(t, err)
	assert.Contains(t, string(view.HTML), "Welcome back, Ms Frizzle")

	view, err = n.ShowSection(context.Background(), SectionCreateAssignment)
	require.NoError(t, err)
	assert.Contains(t, string(view.HTML), `<option value="c1">Biology</option>`)
}
