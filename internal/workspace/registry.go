package workspace

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

// Registry maps access tokens to live workspaces.
type Registry struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	byToken map[string]*Workspace
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		deps:    deps,
		logger:  deps.Logger,
		now:     time.Now,
		byToken: make(map[string]*Workspace),
	}
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

func (r *Registry) reportSize() {
	r.deps.Metrics.SetActiveWorkspaces(r.Len())
}

// Resolve returns the workspace behind token, bootstrapping a new one on a miss.
func (r *Registry) Resolve(ctx context.Context, token string) (*Workspace, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.ErrUnauthorized
	}

	r.mu.Lock()
	ws, ok := r.byToken[token]
	r.mu.Unlock()
	if ok {
		if ws.Session.AccessToken() == token {
			ws.Touch(r.now())
			return ws, nil
		}
		r.drop(token, ws)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session ended, please sign in again")
	}

	ws = New(r.deps)
	session, err := ws.Session.Bootstrap(ctx, token)
	if err != nil {
		ws.Close()
		return nil, err
	}
	if session == nil {
		ws.Close()
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired, please sign in again")
	}
	return r.register(session.AccessToken, ws), nil
}

// SignIn authenticates into a fresh workspace and registers it under the new token.
func (r *Registry) SignIn(ctx context.Context, req models.LoginRequest) (*Workspace, *models.Session, error) {
	ws := New(r.deps)
	session, err := ws.Session.SignIn(ctx, req)
	if err != nil {
		ws.Close()
		return nil, nil, err
	}
	r.logger.Info("workspace opened", zap.String("workspace_id", ws.ID), zap.String("user_id", session.User.ID))
	return r.register(session.AccessToken, ws), session, nil
}

// register keeps the first workspace stored for a token; a concurrent duplicate is closed.
func (r *Registry) register(token string, ws *Workspace) *Workspace {
	r.mu.Lock()
	if existing, ok := r.byToken[token]; ok {
		r.mu.Unlock()
		ws.Close()
		existing.Touch(r.now())
		return existing
	}
	r.byToken[token] = ws
	r.mu.Unlock()
	ws.Touch(r.now())
	r.reportSize()
	return ws
}

// SignOut ends the session of ws and forgets it. Notifications raised on the way stay drainable.
func (r *Registry) SignOut(ctx context.Context, token string, ws *Workspace) error {
	if err := ws.Session.SignOut(ctx); err != nil {
		return err
	}
	r.drop(token, ws)
	return nil
}

// Rekey moves ws to its current token after the provider reissued it.
func (r *Registry) Rekey(oldToken string, ws *Workspace) {
	current := ws.Session.AccessToken()
	if current == "" || current == oldToken {
		return
	}
	r.mu.Lock()
	if r.byToken[oldToken] == ws {
		delete(r.byToken, oldToken)
	}
	r.byToken[current] = ws
	r.mu.Unlock()
	r.logger.Debug("workspace rekeyed", zap.String("workspace_id", ws.ID))
}

func (r *Registry) drop(token string, ws *Workspace) {
	r.mu.Lock()
	if r.byToken[token] == ws {
		delete(r.byToken, token)
	}
	r.mu.Unlock()
	ws.Close()
	r.reportSize()
}

// Sweep closes workspaces idle for longer than maxIdle and returns how many were closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var stale []*Workspace
	r.mu.Lock()
	for token, ws := range r.byToken {
		if ws.LastSeen().Before(cutoff) {
			delete(r.byToken, token)
			stale = append(stale, ws)
		}
	}
	r.mu.Unlock()
	for _, ws := range stale {
		ws.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle workspaces", zap.Int("count", len(stale)))
		r.reportSize()
	}
	return len(stale)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxIdle)
		}
	}
}

// Close shuts every workspace down.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.byToken
	r.byToken = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, ws := range all {
		ws.Close()
	}
	r.reportSize()
}
