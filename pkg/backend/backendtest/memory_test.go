package backendtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

func TestMemorySelectFiltersOrdersAndLimits(t *testing.T) {
	m := New()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	m.Seed("classes",
		models.Class{ID: "past", Name: "Past", Schedule: now.Add(-time.Hour)},
		models.Class{ID: "later", Name: "Later", Schedule: now.Add(3 * time.Hour)},
		models.Class{ID: "soon", Name: "Soon", Schedule: now.Add(time.Hour)},
	)

	var class models.Class
	err := m.Select(context.Background(), "classes", backend.Query{}.Where("schedule", backend.OpGt, now).OrderBy("schedule", true).SingleRow(), &class)
	require.NoError(t, err)
	assert.Equal(t, "soon", class.ID)

	var all []models.Class
	require.NoError(t, m.Select(context.Background(), "classes", backend.Query{}.In("id", []string{"past", "later"}), &all))
	assert.Len(t, all, 2)
}

func TestMemorySingleRowMiss(t *testing.T) {
	m := New()
	var class models.Class
	err := m.Select(context.Background(), "classes", backend.Query{}.Eq("id", "nope").SingleRow(), &class)
	assert.ErrorIs(t, err, backend.ErrNoRows)
}

func TestMemoryFailOn(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	m.FailOn("insert", "submissions", boom)
	err := m.Insert(context.Background(), "submissions", map[string]interface{}{"content": "x"}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"insert:submissions"}, m.Calls())
}

func TestMemoryForksKeepSeparateSessions(t *testing.T) {
	m := New()
	m.AddUser(models.User{ID: "u1", Email: "a@example.com"}, "pw")
	first, second := m.Fork(), m.Fork()

	_, err := first.Auth().SignInWithPassword(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	s1, err := first.Auth().GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s1)
	s2, err := second.Auth().GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s2)
}
