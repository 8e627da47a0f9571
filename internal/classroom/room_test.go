package classroom

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

type manualSimulator struct {
	mu      sync.Mutex
	pending []func()
}

func (m *manualSimulator) After(_ time.Duration, fn func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
	return func() bool { return false }
}

// fire runs every scheduled callback, including those whose stop was requested.
func (m *manualSimulator) fire() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

type classFinderStub struct {
	classes map[string]models.Class
	next    *models.Class
}

func (s classFinderStub) FindByID(_ context.Context, id string) (*models.Class, error) {
	c, ok := s.classes[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return &c, nil
}

func (s classFinderStub) NearestUpcoming(context.Context, time.Time) (*models.Class, error) {
	return s.next, nil
}

type joinCounter struct{ n int }

func (j *joinCounter) RecordClassroomJoin() { j.n++ }

type deniedDevices struct{}

func (deniedDevices) GetUserMedia(context.Context, MediaGrant) (*Stream, error) {
	return nil, ErrPermissionDenied
}

func (deniedDevices) GetDisplayMedia(context.Context, MediaGrant) (*Stream, error) {
	return nil, ErrPermissionDenied
}

var fullGrant = MediaGrant{Camera: true, Microphone: true, Display: true}

func newTestRoom(t *testing.T) (*Room, *state.Store, *manualSimulator, *events.Recorder) {
	t.Helper()
	algebra := models.Class{ID: "c1", Name: "Algebra", Schedule: time.Now().Add(time.Hour), DurationMinutes: 60}
	store := state.New()
	store.SetUser(models.User{ID: "u1", Email: "ana@example.com", UserMetadata: models.UserMetadata{FullName: "Ana", Role: models.RoleStudent}})
	sim := &manualSimulator{}
	rec := &events.Recorder{}
	room := NewRoom(Options{
		Classes:   classFinderStub{classes: map[string]models.Class{"c1": algebra}, next: &algebra},
		Store:     store,
		Simulator: sim,
		Events:    rec,
	})
	return room, store, sim, rec
}

func TestJoinAddsLocalTileThenParticipants(t *testing.T) {
	room, store, sim, rec := newTestRoom(t)
	counter := &joinCounter{}
	room.metrics = counter

	st, err := room.Join(context.Background(), "", fullGrant)
	require.NoError(t, err)
	assert.True(t, st.InClass)
	require.Len(t, st.Tiles, 1)
	assert.True(t, st.Tiles[0].Local)
	assert.True(t, st.VideoEnabled)
	assert.True(t, st.AudioEnabled)

	sim.fire()
	st = room.State()
	assert.Len(t, st.Tiles, 4)
	require.Len(t, st.Participants, 3)
	assert.Equal(t, "Sarah Johnson", st.Participants[0].Name)
	assert.True(t, st.Participants[1].Muted)

	snap := store.Snapshot()
	assert.True(t, snap.InClass)
	require.NotNil(t, snap.CurrentClass)
	assert.Equal(t, "c1", snap.CurrentClass.ID)
	assert.Equal(t, 1, counter.n)
	assert.Equal(t, []events.Type{events.TypeClassJoined}, rec.Types())
}

func TestJoinTwiceWarnsOnce(t *testing.T) {
	room, store, _, _ := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)
	store.DrainNotifications()

	st, err := room.Join(context.Background(), "other", fullGrant)
	require.NoError(t, err)
	assert.Equal(t, "c1", st.Class.ID)
	assert.Equal(t, "c1", store.Snapshot().CurrentClass.ID)

	notes := store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationWarning, notes[0].Level)
	assert.Equal(t, "You are already in a class", notes[0].Message)
}

func TestJoinWithoutUpcomingClassStaysIdle(t *testing.T) {
	room, store, _, _ := newTestRoom(t)
	room.classes = classFinderStub{}

	st, err := room.Join(context.Background(), "", fullGrant)
	require.NoError(t, err)
	assert.False(t, st.InClass)
	assert.Empty(t, st.Tiles)

	notes := store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationInfo, notes[0].Level)
}

func TestJoinMediaDenied(t *testing.T) {
	room, store, _, rec := newTestRoom(t)
	room.devices = deniedDevices{}

	st, err := room.Join(context.Background(), "c1", MediaGrant{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	assert.False(t, st.InClass)
	assert.False(t, store.Snapshot().InClass)
	assert.Empty(t, rec.Events())

	notes := store.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationError, notes[0].Level)
}

func TestLeaveThenRejoinDropsStaleCallbacks(t *testing.T) {
	room, _, sim, _ := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)
	room.SendMessage("hello")

	room.Leave()
	_, err = room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)

	// callbacks from both sessions fire; only the current session's participant batch applies
	sim.fire()
	st := room.State()
	assert.Len(t, st.Participants, 3)
	assert.Len(t, st.Tiles, 4)
	assert.Empty(t, st.Chat)
}

func TestLeaveResetsEverything(t *testing.T) {
	room, store, sim, rec := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)
	sim.fire()
	room.ToggleHand()
	local := room.local

	st := room.Leave()
	assert.False(t, st.InClass)
	assert.False(t, st.HandRaised)
	assert.Empty(t, st.Tiles)
	assert.Empty(t, st.Participants)
	assert.Nil(t, st.Class)
	for _, track := range local.Tracks {
		assert.True(t, track.Stopped)
	}
	assert.False(t, store.Snapshot().InClass)
	assert.Nil(t, store.Snapshot().CurrentClass)
	assert.Equal(t, []events.Type{events.TypeClassJoined, events.TypeClassLeft}, rec.Types())

	// leaving while idle is harmless
	room.Leave()
	assert.Len(t, rec.Events(), 2)
}

func TestToggleMediaFlipsTracks(t *testing.T) {
	room, _, _, _ := newTestRoom(t)

	st := room.ToggleVideo()
	assert.False(t, st.InClass)

	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)

	st = room.ToggleVideo()
	assert.False(t, st.VideoEnabled)
	assert.False(t, st.Tiles[0].VideoOn)
	st = room.ToggleAudio()
	assert.False(t, st.AudioEnabled)
	assert.True(t, st.Tiles[0].Muted)
	st = room.ToggleVideo()
	assert.True(t, st.VideoEnabled)
}

func TestScreenShareSwapsPeerVideoTrack(t *testing.T) {
	room, _, _, _ := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)
	camera := room.local.VideoTrack()

	st, err := room.ToggleScreenShare(context.Background(), fullGrant)
	require.NoError(t, err)
	assert.True(t, st.ScreenSharing)
	assert.Equal(t, "screen", room.peer.Sender(KindVideo).Label)
	screen := room.screen

	st, err = room.ScreenShareEnded(context.Background())
	require.NoError(t, err)
	assert.False(t, st.ScreenSharing)
	assert.Same(t, camera, room.peer.Sender(KindVideo))
	assert.True(t, screen.VideoTrack().Stopped)
}

func TestScreenShareDenied(t *testing.T) {
	room, store, _, _ := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)
	store.DrainNotifications()

	st, err := room.ToggleScreenShare(context.Background(), MediaGrant{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	assert.False(t, st.ScreenSharing)
	assert.Len(t, store.DrainNotifications(), 1)
}

func TestSendMessageSchedulesCannedReply(t *testing.T) {
	room, _, sim, _ := newTestRoom(t)
	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)

	st := room.SendMessage("   ")
	assert.Empty(t, st.Chat)

	st = room.SendMessage("Is there homework?")
	require.Len(t, st.Chat, 1)
	assert.True(t, st.Chat[0].Own)
	assert.Equal(t, "Ana", st.Chat[0].Author)

	sim.fire()
	st = room.State()
	require.Len(t, st.Chat, 2)
	assert.Equal(t, TeacherName, st.Chat[1].Author)
	assert.Equal(t, CannedReply, st.Chat[1].Text)
	assert.False(t, st.Chat[1].Own)
}

func TestSubscribeReceivesFeed(t *testing.T) {
	room, _, _, _ := newTestRoom(t)
	feed, cancel := room.Subscribe()
	defer cancel()

	_, err := room.Join(context.Background(), "c1", fullGrant)
	require.NoError(t, err)

	first := <-feed
	second := <-feed
	assert.Equal(t, EventGridCleared, first.Type)
	assert.Equal(t, EventTileAdded, second.Type)
	require.NotNil(t, second.Tile)
	assert.True(t, second.Tile.Local)
}

func TestGenerateMeetingID(t *testing.T) {
	pattern := regexp.MustCompile(`^edumeet-[a-z0-9]{10}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := GenerateMeetingID()
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}
