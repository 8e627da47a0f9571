package backend

import (
	"sync"

	"github.com/noah-isme/edumeet/internal/models"
)

// authDispatcher fans auth events out to subscribers synchronously, in subscription order.
type authDispatcher struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id      int
	handler AuthStateHandler
}

func (d *authDispatcher) subscribe(handler AuthStateHandler) func() {
	if handler == nil {
		return func() {}
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers = append(d.handlers, subscription{id: id, handler: handler})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.handlers {
				if s.id == id {
					d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

func (d *authDispatcher) emit(eventType models.AuthEventType, session *models.Session) {
	d.mu.Lock()
	handlers := make([]AuthStateHandler, len(d.handlers))
	for i, s := range d.handlers {
		handlers[i] = s.handler
	}
	d.mu.Unlock()

	event := models.AuthEvent{Type: eventType, Session: session}
	for _, h := range handlers {
		h(event)
	}
}
