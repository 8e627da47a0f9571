package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/pkg/backend/backendtest"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

var student = models.User{ID: "student-1", Email: "student@example.com", UserMetadata: models.UserMetadata{Role: models.RoleStudent, FullName: "Sam Lee"}}

func newTestRegistry(t *testing.T) (*Registry, *backendtest.Memory) {
	t.Helper()
	mem := backendtest.New()
	mem.AddUser(student, "secret456")
	reg := NewRegistry(Deps{Backend: mem.Factory()})
	t.Cleanup(reg.Close)
	return reg, mem
}

func TestRegistrySignInRegistersWorkspace(t *testing.T) {
	reg, _ := newTestRegistry(t)

	ws, session, err := reg.SignIn(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret456"})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, student.ID, ws.Store.User().ID)

	resolved, err := reg.Resolve(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.Same(t, ws, resolved)
}

func TestRegistrySignInFailureLeavesNothingBehind(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, _, err := reg.SignIn(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryResolveBootstrapsFromToken(t *testing.T) {
	reg, mem := newTestRegistry(t)
	token := mem.IssueToken(student)

	ws, err := reg.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, student.ID, ws.Store.User().ID)
	assert.Equal(t, navigation.SectionDashboard, ws.Store.Section())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Resolve(context.Background(), "tok-nobody")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	_, err = reg.Resolve(context.Background(), "  ")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistrySignOutForgetsToken(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ws, session, err := reg.SignIn(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret456"})
	require.NoError(t, err)

	require.NoError(t, reg.SignOut(context.Background(), session.AccessToken, ws))
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, ws.Store.User())

	_, err = reg.Resolve(context.Background(), session.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestRegistrySweepClosesIdleWorkspaces(t *testing.T) {
	reg, mem := newTestRegistry(t)
	_, err := reg.Resolve(context.Background(), mem.IssueToken(student))
	require.NoError(t, err)

	assert.Equal(t, 0, reg.Sweep(time.Hour))
	reg.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, reg.Sweep(time.Hour))
	assert.Equal(t, 0, reg.Len())
}

func TestWorkspacesAreIsolated(t *testing.T) {
	reg, mem := newTestRegistry(t)
	teacher := models.User{ID: "teacher-1", Email: "teacher@example.com", UserMetadata: models.UserMetadata{Role: models.RoleTeacher}}

	a, err := reg.Resolve(context.Background(), mem.IssueToken(student))
	require.NoError(t, err)
	b, err := reg.Resolve(context.Background(), mem.IssueToken(teacher))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, models.RoleStudent, a.Store.Role())
	assert.Equal(t, models.RoleTeacher, b.Store.Role())
}
