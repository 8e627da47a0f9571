package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/identity"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/repository"
	"github.com/noah-isme/edumeet/internal/state"
	"github.com/noah-isme/edumeet/pkg/backend"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/jobs"
)

// Enqueuer is the slice of jobs.Queue the controller needs.
type Enqueuer interface {
	Enqueue(job jobs.Job) error
}

type dashboardLoader interface {
	LoadFor(ctx context.Context, user models.User) error
}

// SessionControllerConfig groups the controller's collaborators.
type SessionControllerConfig struct {
	Auth      backend.AuthClient
	Store     *state.Store
	Navigator *navigation.Navigator
	Identity  identity.Cache
	Dashboard *DashboardService
	Queue     Enqueuer
	Events    events.Publisher
	Validator *validator.Validate
	Logger    *zap.Logger
}

// SessionController reacts to auth-state changes and drives the signed-in/signed-out transitions.
type SessionController struct {
	auth      backend.AuthClient
	store     *state.Store
	nav       *navigation.Navigator
	identity  identity.Cache
	dashboard *DashboardService
	loader    dashboardLoader
	queue     Enqueuer
	events    events.Publisher
	validator *validator.Validate
	logger    *zap.Logger

	mu          sync.Mutex
	token       string
	unsubscribe func()
}

// NewSessionController builds the controller and subscribes it to auth-state changes.
func NewSessionController(cfg SessionControllerConfig) *SessionController {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Identity == nil {
		cfg.Identity = identity.Nop{}
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	c := &SessionController{
		auth:      cfg.Auth,
		store:     cfg.Store,
		nav:       cfg.Navigator,
		identity:  cfg.Identity,
		dashboard: cfg.Dashboard,
		queue:     cfg.Queue,
		events:    cfg.Events,
		validator: cfg.Validator,
		logger:    cfg.Logger,
	}
	if cfg.Dashboard != nil {
		c.loader = cfg.Dashboard
	}
	c.unsubscribe = cfg.Auth.OnAuthStateChange(c.handleAuthEvent)
	return c
}

// Close detaches the controller from the auth client.
func (c *SessionController) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// AccessToken returns the token of the current session, empty when signed out.
func (c *SessionController) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *SessionController) setToken(token string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.token
	c.token = token
	return previous
}

func (c *SessionController) handleAuthEvent(evt models.AuthEvent) {
	ctx := context.Background()
	switch evt.Type {
	case models.AuthEventSignedIn:
		if evt.Session != nil {
			c.signedIn(ctx, *evt.Session)
		}
	case models.AuthEventUserUpdated:
		if evt.Session != nil {
			c.userUpdated(ctx, *evt.Session)
		}
	case models.AuthEventSignedOut:
		c.signedOut(ctx)
	default:
		c.logger.Debug("ignoring auth event", zap.String("type", string(evt.Type)))
	}
}

func (c *SessionController) signedIn(ctx context.Context, session models.Session) {
	c.setToken(session.AccessToken)
	user := session.User

	c.store.SetUser(user)
	c.store.ShowShell()
	c.nav.RefreshNav(user.Role())
	c.store.SetSection(navigation.DefaultSection)

	c.enqueueDashboard(user)

	if err := c.identity.Save(ctx, identity.SlotForToken(session.AccessToken), models.IdentityFromUser(user)); err != nil {
		c.logger.Warn("identity cache save failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	if err := c.events.Publish(ctx, events.New(events.TypeUserAuthenticated, user.ID, map[string]interface{}{
		"role": string(user.Role()),
	})); err != nil {
		c.logger.Warn("publish user.authenticated failed", zap.Error(err))
	}
	c.logger.Info("user signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role())))
}

func (c *SessionController) enqueueDashboard(user models.User) {
	if c.loader == nil {
		return
	}
	run := func() {
		if err := c.loader.LoadFor(context.Background(), user); err != nil {
			c.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		}
	}
	if c.queue == nil || c.dashboard == nil {
		go run()
		return
	}
	err := c.queue.Enqueue(jobs.Job{Type: JobDashboardLoad, Payload: DashboardJob{Service: c.dashboard, User: user}})
	if err != nil {
		c.logger.Warn("dashboard job not queued, loading inline", zap.Error(err))
		go run()
	}
}

func (c *SessionController) userUpdated(ctx context.Context, session models.Session) {
	previous := c.setToken(session.AccessToken)
	c.store.SetUser(session.User)
	c.nav.RefreshNav(session.User.Role())

	if previous != "" && previous != session.AccessToken {
		_ = c.identity.Clear(ctx, identity.SlotForToken(previous))
	}
	if err := c.identity.Save(ctx, identity.SlotForToken(session.AccessToken), models.IdentityFromUser(session.User)); err != nil {
		c.logger.Warn("identity cache save failed", zap.String("user_id", session.User.ID), zap.Error(err))
	}
}

func (c *SessionController) signedOut(ctx context.Context) {
	previous := c.setToken("")
	userID := ""
	if u := c.store.User(); u != nil {
		userID = u.ID
	}
	c.store.Clear()
	c.nav.RefreshNav("")
	if previous != "" {
		if err := c.identity.Clear(ctx, identity.SlotForToken(previous)); err != nil {
			c.logger.Warn("identity cache clear failed", zap.Error(err))
		}
	}
	if userID != "" {
		_ = c.events.Publish(ctx, events.New(events.TypeUserSignedOut, userID, nil))
	}
	c.logger.Info("user signed out", zap.String("user_id", userID))
}

// Bootstrap restores the session behind accessToken. A nil session with a nil error means signed out.
func (c *SessionController) Bootstrap(ctx context.Context, accessToken string) (*models.Session, error) {
	slot := identity.SlotForToken(accessToken)
	if cached, err := c.identity.Load(ctx, slot); err == nil && cached != nil {
		c.store.SetUser(cached.User())
	} else if err != nil && !errors.Is(err, identity.ErrNotFound) {
		c.logger.Warn("identity cache load failed", zap.Error(err))
	}

	c.auth.SetSession(accessToken)
	session, err := c.auth.GetSession(ctx)
	if err != nil {
		c.store.Clear()
		return nil, repository.Translate(err)
	}
	if session == nil {
		c.store.Clear()
		_ = c.identity.Clear(ctx, slot)
		return nil, nil
	}
	c.signedIn(ctx, *session)
	return session, nil
}

// SignIn authenticates with email and password. State changes arrive through the SIGNED_IN event.
func (c *SessionController) SignIn(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := c.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}
	session, err := c.auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		var providerErr *backend.ProviderError
		if errors.As(err, &providerErr) && providerErr.Status < 500 {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, providerErr.Message)
		}
		return nil, repository.Translate(err)
	}
	if !session.User.Role().Valid() {
		c.logger.Warn("signed-in user has no usable role", zap.String("user_id", session.User.ID))
	}
	return session, nil
}

// SignOut ends the session. The SIGNED_OUT event resets the store.
func (c *SessionController) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		return repository.Translate(err)
	}
	return nil
}

// UpdateProfile changes the display name while keeping the role.
func (c *SessionController) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := c.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "full name is required")
	}
	current := c.store.User()
	if current == nil {
		return nil, appErrors.ErrUnauthorized
	}
	metadata := current.UserMetadata
	metadata.FullName = req.FullName
	user, err := c.auth.UpdateUser(ctx, metadata)
	if err != nil {
		return nil, repository.Translate(err)
	}
	c.store.Notify(models.NotificationSuccess, "Profile updated")
	return user, nil
}
