package classroom

import (
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/models"
)

// EventType names a room feed event.
type EventType string

const (
	EventGridCleared       EventType = "grid.cleared"
	EventTileAdded         EventType = "tile.added"
	EventParticipantJoined EventType = "participant.joined"
	EventChatMessage       EventType = "chat.message"
	EventMediaChanged      EventType = "media.changed"
	EventHandChanged       EventType = "hand.changed"
	EventLeft              EventType = "room.left"
)

const feedBuffer = 64

// Event is pushed to feed subscribers, usually a websocket.
type Event struct {
	Type        EventType           `json:"type"`
	Tile        *Tile               `json:"tile,omitempty"`
	Participant *models.Participant `json:"participant,omitempty"`
	Message     *models.ChatMessage `json:"message,omitempty"`
	State       *State              `json:"state,omitempty"`
	At          time.Time           `json:"at"`
}

// Subscribe returns a feed of room events and its cancel function.
// Slow subscribers lose events rather than blocking the room.
func (r *Room) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, feedBuffer)
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = ch
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

// CloseFeeds ends every subscription.
func (r *Room) CloseFeeds() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.subs {
		delete(r.subs, id)
		close(c)
	}
}

func (r *Room) broadcastLocked(e Event) {
	e.At = r.now().UTC()
	for id, c := range r.subs {
		select {
		case c <- e:
		default:
			r.logger.Debug("room feed full, dropping event", zap.Int("subscriber", id), zap.String("type", string(e.Type)))
		}
	}
}
