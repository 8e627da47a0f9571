package backendtest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/backend"
)

type memoryUser struct {
	user     models.User
	password string
}

type memoryAuth struct {
	shared *shared

	mu    sync.Mutex
	token string

	handlersMu sync.Mutex
	nextID     int
	handlers   map[int]backend.AuthStateHandler
	order      []int
}

func (a *memoryAuth) current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

func (a *memoryAuth) GetSession(context.Context) (*models.Session, error) {
	token := a.current()
	if token == "" {
		return nil, nil
	}
	a.shared.mu.Lock()
	user, ok := a.shared.sessions[token]
	a.shared.mu.Unlock()
	if !ok {
		a.SetSession("")
		return nil, nil
	}
	return &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: user}, nil
}

func (a *memoryAuth) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	a.shared.mu.Lock()
	entry, ok := a.shared.users[email]
	if !ok || entry.password != password {
		a.shared.mu.Unlock()
		return nil, &backend.ProviderError{Status: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	token := "tok-" + uuid.NewString()
	a.shared.sessions[token] = entry.user
	a.shared.mu.Unlock()
	a.SetSession(token)

	session := &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: entry.user}
	a.emit(models.AuthEventSignedIn, session)
	return session, nil
}

func (a *memoryAuth) SignOut(context.Context) error {
	token := a.current()
	a.shared.mu.Lock()
	delete(a.shared.sessions, token)
	a.shared.mu.Unlock()
	a.SetSession("")
	a.emit(models.AuthEventSignedOut, nil)
	return nil
}

func (a *memoryAuth) SetSession(accessToken string) {
	a.mu.Lock()
	a.token = accessToken
	a.mu.Unlock()
}

func (a *memoryAuth) UpdateUser(_ context.Context, metadata models.UserMetadata) (*models.User, error) {
	token := a.current()
	a.shared.mu.Lock()
	user, ok := a.shared.sessions[token]
	if !ok {
		a.shared.mu.Unlock()
		return nil, backend.ErrNoSession
	}
	user.UserMetadata = metadata
	a.shared.sessions[token] = user
	if entry, ok := a.shared.users[user.Email]; ok {
		entry.user = user
		a.shared.users[user.Email] = entry
	}
	a.shared.mu.Unlock()

	session := &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: user}
	a.emit(models.AuthEventUserUpdated, session)
	return &user, nil
}

func (a *memoryAuth) OnAuthStateChange(handler backend.AuthStateHandler) func() {
	a.handlersMu.Lock()
	if a.handlers == nil {
		a.handlers = make(map[int]backend.AuthStateHandler)
	}
	a.nextID++
	id := a.nextID
	a.handlers[id] = handler
	a.order = append(a.order, id)
	a.handlersMu.Unlock()
	return func() {
		a.handlersMu.Lock()
		delete(a.handlers, id)
		a.handlersMu.Unlock()
	}
}

func (a *memoryAuth) emit(t models.AuthEventType, session *models.Session) {
	a.handlersMu.Lock()
	var handlers []backend.AuthStateHandler
	for _, id := range a.order {
		if h, ok := a.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	a.handlersMu.Unlock()
	for _, h := range handlers {
		h(models.AuthEvent{Type: t, Session: session})
	}
}
