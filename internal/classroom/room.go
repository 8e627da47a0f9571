// Package classroom runs the simulated live classroom of one workspace.
package classroom

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

const localTileID = "local"

// ClassFinder resolves the class to join.
type ClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	NearestUpcoming(ctx context.Context, now time.Time) (*models.Class, error)
}

// JoinRecorder counts joins.
type JoinRecorder interface {
	RecordClassroomJoin()
}

// Config holds the simulation delays.
type Config struct {
	ParticipantDelay time.Duration
	ChatReplyDelay   time.Duration
}

// Options wires a Room.
type Options struct {
	Classes   ClassFinder
	Store     *state.Store
	Devices   MediaDevices
	Simulator Simulator
	Events    events.Publisher
	Metrics   JoinRecorder
	Config    Config
	Logger    *zap.Logger
}

// Tile is one box of the video grid.
type Tile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Local   bool   `json:"local"`
	Screen  bool   `json:"screen"`
	VideoOn bool   `json:"video_on"`
	Muted   bool   `json:"muted"`
}

// State is a copy of the room flags and rendered regions.
type State struct {
	InClass       bool                 `json:"in_class"`
	Class         *models.Class        `json:"class,omitempty"`
	VideoEnabled  bool                 `json:"video_enabled"`
	AudioEnabled  bool                 `json:"audio_enabled"`
	ScreenSharing bool                 `json:"screen_sharing"`
	HandRaised    bool                 `json:"hand_raised"`
	Tiles         []Tile               `json:"tiles"`
	Participants  []models.Participant `json:"participants"`
	Chat          []models.ChatMessage `json:"chat"`
}

// Room is the idle/inClass state machine of one workspace.
// Simulator callbacks carry the epoch they were scheduled in; a leave or a new join bumps the
// epoch, so callbacks from an earlier session are dropped.
type Room struct {
	classes ClassFinder
	store   *state.Store
	devices MediaDevices
	sim     Simulator
	events  events.Publisher
	metrics JoinRecorder
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	mu           sync.Mutex
	epoch        uint64
	inClass      bool
	class        *models.Class
	local        *Stream
	screen       *Stream
	peer         *PeerConnection
	handRaised   bool
	tiles        []Tile
	participants []models.Participant
	chat         []models.ChatMessage
	stops        []func() bool

	nextSub int
	subs    map[int]chan Event
}

// NewRoom builds an idle room.
func NewRoom(opts Options) *Room {
	if opts.Devices == nil {
		opts.Devices = BrowserDevices{}
	}
	if opts.Simulator == nil {
		opts.Simulator = TimerSimulator{}
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.ParticipantDelay <= 0 {
		opts.Config.ParticipantDelay = 2 * time.Second
	}
	if opts.Config.ChatReplyDelay <= 0 {
		opts.Config.ChatReplyDelay = 1500 * time.Millisecond
	}
	return &Room{
		classes: opts.Classes,
		store:   opts.Store,
		devices: opts.Devices,
		sim:     opts.Simulator,
		events:  opts.Events,
		metrics: opts.Metrics,
		cfg:     opts.Config,
		logger:  opts.Logger,
		now:     time.Now,
		subs:    make(map[int]chan Event),
	}
}

// State returns a copy of the room.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Room) stateLocked() State {
	s := State{
		InClass:       r.inClass,
		ScreenSharing: r.screen != nil,
		HandRaised:    r.handRaised,
		Tiles:         append([]Tile{}, r.tiles...),
		Participants:  append([]models.Participant{}, r.participants...),
		Chat:          append([]models.ChatMessage{}, r.chat...),
	}
	if r.class != nil {
		c := *r.class
		s.Class = &c
	}
	if v := r.local.VideoTrack(); v != nil {
		s.VideoEnabled = v.Enabled
	}
	if a := r.local.AudioTrack(); a != nil {
		s.AudioEnabled = a.Enabled
	}
	return s
}

// Join enters a class. Without a class id the nearest upcoming class is used.
// Joining while already in class only warns.
func (r *Room) Join(ctx context.Context, classID string, grant MediaGrant) (State, error) {
	if r.isInClass() {
		r.store.Notify(models.NotificationWarning, "You are already in a class")
		return r.State(), nil
	}

	class, err := r.resolveClass(ctx, strings.TrimSpace(classID))
	if err != nil {
		r.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		return r.State(), err
	}
	if class == nil {
		r.store.Notify(models.NotificationInfo, "No upcoming classes scheduled")
		return r.State(), nil
	}

	stream, err := r.devices.GetUserMedia(ctx, grant)
	if err != nil {
		msg := "Could not access camera or microphone. Please check your permissions."
		r.store.Notify(models.NotificationError, msg)
		if errors.Is(err, ErrPermissionDenied) {
			return r.State(), appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, msg)
		}
		return r.State(), err
	}

	r.mu.Lock()
	if r.inClass {
		r.mu.Unlock()
		stream.Stop()
		r.store.Notify(models.NotificationWarning, "You are already in a class")
		return r.State(), nil
	}
	r.epoch++
	epoch := r.epoch
	r.inClass = true
	r.class = class
	r.local = stream
	r.peer = NewPeerConnection()
	r.peer.AddTrack(stream.VideoTrack())
	r.peer.AddTrack(stream.AudioTrack())
	r.tiles = nil
	r.broadcastLocked(Event{Type: EventGridCleared})
	tile := Tile{ID: localTileID, Name: "You", Local: true, VideoOn: stream.VideoTrack() != nil, Muted: stream.AudioTrack() == nil}
	r.tiles = append(r.tiles, tile)
	r.broadcastLocked(Event{Type: EventTileAdded, Tile: &tile})
	r.stops = append(r.stops, r.sim.After(r.cfg.ParticipantDelay, func() { r.addSimulatedParticipants(epoch) }))
	snap := r.stateLocked()
	r.mu.Unlock()

	r.store.SetClassroom(true, class)
	r.store.Notify(models.NotificationSuccess, "Joined "+class.Name)
	if r.metrics != nil {
		r.metrics.RecordClassroomJoin()
	}
	userID := ""
	if u := r.store.User(); u != nil {
		userID = u.ID
	}
	if err := r.events.Publish(ctx, events.New(events.TypeClassJoined, userID, map[string]interface{}{"class_id": class.ID})); err != nil {
		r.logger.Warn("publish class.joined failed", zap.Error(err))
	}
	r.logger.Info("joined class", zap.String("class_id", class.ID), zap.String("user_id", userID))
	return snap, nil
}

func (r *Room) isInClass() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inClass
}

func (r *Room) resolveClass(ctx context.Context, classID string) (*models.Class, error) {
	if r.classes == nil {
		return nil, appErrors.ErrBackendUnavailable
	}
	if classID != "" {
		return r.classes.FindByID(ctx, classID)
	}
	return r.classes.NearestUpcoming(ctx, r.now())
}

func (r *Room) addSimulatedParticipants(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.epoch || !r.inClass {
		r.logger.Debug("dropping stale simulated participants", zap.Uint64("epoch", epoch))
		return
	}
	for _, p := range SimulatedParticipants {
		participant := p
		r.participants = append(r.participants, participant)
		tile := Tile{ID: p.ID, Name: p.Name, VideoOn: true, Muted: p.Muted}
		r.tiles = append(r.tiles, tile)
		r.broadcastLocked(Event{Type: EventParticipantJoined, Participant: &participant, Tile: &tile})
	}
}

// ToggleVideo flips the camera track. No-op without a local stream.
func (r *Room) ToggleVideo() State {
	return r.toggle(KindVideo)
}

// ToggleAudio flips the microphone track. No-op without a local stream.
func (r *Room) ToggleAudio() State {
	return r.toggle(KindAudio)
}

func (r *Room) toggle(kind TrackKind) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	track := r.local.track(kind)
	if track == nil {
		return r.stateLocked()
	}
	track.Enabled = !track.Enabled
	for i := range r.tiles {
		if !r.tiles[i].Local {
			continue
		}
		if kind == KindVideo {
			r.tiles[i].VideoOn = track.Enabled
		} else {
			r.tiles[i].Muted = !track.Enabled
		}
	}
	snap := r.stateLocked()
	r.broadcastLocked(Event{Type: EventMediaChanged, State: &snap})
	return snap
}

// ToggleHand raises or lowers the user's hand.
func (r *Room) ToggleHand() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inClass {
		return r.stateLocked()
	}
	r.handRaised = !r.handRaised
	snap := r.stateLocked()
	r.broadcastLocked(Event{Type: EventHandChanged, State: &snap})
	return snap
}

// ToggleScreenShare starts sharing when idle and restores the camera when already sharing.
func (r *Room) ToggleScreenShare(ctx context.Context, grant MediaGrant) (State, error) {
	r.mu.Lock()
	if !r.inClass || r.local == nil {
		defer r.mu.Unlock()
		return r.stateLocked(), nil
	}
	if r.screen != nil {
		r.screen.Stop()
		r.screen = nil
		r.peer.ReplaceTrack(KindVideo, r.local.VideoTrack())
		r.setLocalScreen(false)
		snap := r.stateLocked()
		r.broadcastLocked(Event{Type: EventMediaChanged, State: &snap})
		r.mu.Unlock()
		return snap, nil
	}
	r.mu.Unlock()

	screen, err := r.devices.GetDisplayMedia(ctx, grant)
	if err != nil {
		msg := "Screen sharing was not allowed"
		r.store.Notify(models.NotificationError, msg)
		if errors.Is(err, ErrPermissionDenied) {
			return r.State(), appErrors.Wrap(err, appErrors.ErrPermissionDenied.Code, appErrors.ErrPermissionDenied.Status, msg)
		}
		return r.State(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inClass || r.screen != nil {
		screen.Stop()
		return r.stateLocked(), nil
	}
	r.screen = screen
	r.peer.ReplaceTrack(KindVideo, screen.VideoTrack())
	r.setLocalScreen(true)
	snap := r.stateLocked()
	r.broadcastLocked(Event{Type: EventMediaChanged, State: &snap})
	return snap, nil
}

// ScreenShareEnded handles the browser's "stop sharing" button by toggling back to the camera.
func (r *Room) ScreenShareEnded(ctx context.Context) (State, error) {
	r.mu.Lock()
	sharing := r.screen != nil
	r.mu.Unlock()
	if !sharing {
		return r.State(), nil
	}
	return r.ToggleScreenShare(ctx, MediaGrant{})
}

func (r *Room) setLocalScreen(on bool) {
	for i := range r.tiles {
		if r.tiles[i].Local {
			r.tiles[i].Screen = on
		}
	}
}

// SendMessage posts a chat line and schedules the canned reply. Blank text is ignored.
func (r *Room) SendMessage(text string) State {
	text = strings.TrimSpace(text)
	author := "You"
	if u := r.store.User(); u != nil {
		author = u.DisplayName()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if text == "" || !r.inClass {
		return r.stateLocked()
	}
	msg := models.ChatMessage{ID: uuid.NewString(), Author: author, Text: text, Own: true, SentAt: r.now().UTC()}
	r.chat = append(r.chat, msg)
	r.broadcastLocked(Event{Type: EventChatMessage, Message: &msg})
	epoch := r.epoch
	r.stops = append(r.stops, r.sim.After(r.cfg.ChatReplyDelay, func() { r.appendReply(epoch) }))
	return r.stateLocked()
}

func (r *Room) appendReply(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.epoch || !r.inClass {
		return
	}
	reply := models.ChatMessage{ID: uuid.NewString(), Author: TeacherName, Text: CannedReply, SentAt: r.now().UTC()}
	r.chat = append(r.chat, reply)
	r.broadcastLocked(Event{Type: EventChatMessage, Message: &reply})
}

// Leave stops local media, clears every region and resets the flags. It always succeeds.
func (r *Room) Leave() State {
	r.mu.Lock()
	wasIn := r.inClass
	r.epoch++
	for _, stop := range r.stops {
		if stop != nil {
			stop()
		}
	}
	r.stops = nil
	r.local.Stop()
	r.screen.Stop()
	r.peer.Close()
	r.local, r.screen, r.peer = nil, nil, nil
	r.inClass = false
	r.class = nil
	r.handRaised = false
	r.tiles = nil
	r.participants = nil
	r.chat = nil
	snap := r.stateLocked()
	if wasIn {
		r.broadcastLocked(Event{Type: EventLeft, State: &snap})
	}
	r.mu.Unlock()

	r.store.SetClassroom(false, nil)
	if wasIn {
		r.store.Notify(models.NotificationInfo, "You left the class")
		userID := ""
		if u := r.store.User(); u != nil {
			userID = u.ID
		}
		_ = r.events.Publish(context.Background(), events.New(events.TypeClassLeft, userID, nil))
	}
	return snap
}
