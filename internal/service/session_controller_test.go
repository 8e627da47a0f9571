package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/identity"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/pkg/backend/backendtest"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

type sessionHarness struct {
	*fixture
	client   *backendtest.Memory
	ctrl     *SessionController
	nav      *navigation.Navigator
	queue    *recordingQueue
	recorder *events.Recorder
	identity *identity.BoltCache
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	f := newFixture(t)
	f.mem.AddUser(teacherUser, "secret123")
	f.mem.AddUser(studentUser, "secret456")

	cache, err := identity.OpenBolt(filepath.Join(t.TempDir(), "identity.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	client := f.mem.Fork()
	nav := navigation.NewNavigator(f.store, nil)
	queue := &recordingQueue{}
	recorder := &events.Recorder{}
	ctrl := NewSessionController(SessionControllerConfig{
		Auth:      client.Auth(),
		Store:     f.store,
		Navigator: nav,
		Identity:  cache,
		Dashboard: f.dashboard(),
		Queue:     queue,
		Events:    recorder,
	})
	t.Cleanup(ctrl.Close)
	return &sessionHarness{fixture: f, client: client, ctrl: ctrl, nav: nav, queue: queue, recorder: recorder, identity: cache}
}

func TestSignInPopulatesStore(t *testing.T) {
	h := newSessionHarness(t)

	session, err := h.ctrl.SignIn(context.Background(), models.LoginRequest{Email: " teacher@example.com ", Password: "secret123"})
	require.NoError(t, err)
	require.NotNil(t, session)

	snap := h.store.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, teacherUser.ID, snap.User.ID)
	assert.Equal(t, models.RoleTeacher, snap.Role)
	assert.True(t, snap.ShellVisible)
	assert.Equal(t, navigation.SectionDashboard, snap.Section)
	assert.Equal(t, session.AccessToken, h.ctrl.AccessToken())

	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, JobDashboardLoad, h.queue.jobs[0].Type)
	assert.Equal(t, []events.Type{events.TypeUserAuthenticated}, h.recorder.Types())

	cached, err := h.identity.Load(context.Background(), identity.SlotForToken(session.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, teacherUser.ID, cached.User().ID)
}

func TestSignInRejectsBadPassword(t *testing.T) {
	h := newSessionHarness(t)

	_, err := h.ctrl.SignIn(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, "Invalid login credentials", appErrors.FromError(err).Message)
	assert.Nil(t, h.store.User())
	assert.Empty(t, h.queue.jobs)
}

func TestSignInValidatesInput(t *testing.T) {
	h := newSessionHarness(t)

	_, err := h.ctrl.SignIn(context.Background(), models.LoginRequest{Email: "", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSignOutClearsEverything(t *testing.T) {
	h := newSessionHarness(t)
	session, err := h.ctrl.SignIn(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret456"})
	require.NoError(t, err)

	require.NoError(t, h.ctrl.SignOut(context.Background()))

	snap := h.store.Snapshot()
	assert.Nil(t, snap.User)
	assert.False(t, snap.ShellVisible)
	assert.Empty(t, h.ctrl.AccessToken())
	assert.Empty(t, h.nav.Items())
	assert.Equal(t, []events.Type{events.TypeUserAuthenticated, events.TypeUserSignedOut}, h.recorder.Types())

	_, err = h.identity.Load(context.Background(), identity.SlotForToken(session.AccessToken))
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestBootstrapRestoresExistingSession(t *testing.T) {
	h := newSessionHarness(t)
	token := h.mem.IssueToken(studentUser)

	session, err := h.ctrl.Bootstrap(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, studentUser.ID, h.store.User().ID)
	assert.Equal(t, token, h.ctrl.AccessToken())
}

func TestBootstrapUnknownTokenStaysSignedOut(t *testing.T) {
	h := newSessionHarness(t)

	session, err := h.ctrl.Bootstrap(context.Background(), "tok-unknown")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, h.store.User())
	assert.Empty(t, h.queue.jobs)
}

func TestUpdateProfileKeepsRole(t *testing.T) {
	h := newSessionHarness(t)
	_, err := h.ctrl.SignIn(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "secret123"})
	require.NoError(t, err)
	h.store.DrainNotifications()

	user, err := h.ctrl.UpdateProfile(context.Background(), models.UpdateProfileRequest{FullName: "  Dr. Rivera "})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rivera", user.UserMetadata.FullName)
	assert.Equal(t, models.RoleTeacher, user.Role())

	current := h.store.User()
	require.NotNil(t, current)
	assert.Equal(t, "Dr. Rivera", current.DisplayName())
	notes := h.store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationSuccess, notes[0].Level)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	h := newSessionHarness(t)

	_, err := h.ctrl.UpdateProfile(context.Background(), models.UpdateProfileRequest{FullName: "Someone"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
