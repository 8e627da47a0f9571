// Package workspace assembles the per-session application context and keeps one per signed-in token.
package workspace

import (
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/classroom"
	"github.com/noah-isme/edumeet/internal/events"
	"github.com/noah-isme/edumeet/internal/identity"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/repository"
	"github.com/noah-isme/edumeet/internal/service"
	"github.com/noah-isme/edumeet/internal/state"
	"github.com/noah-isme/edumeet/pkg/backend"
	"github.com/noah-isme/edumeet/pkg/storage"
)

// Deps are the process-wide collaborators every workspace shares.
type Deps struct {
	Backend        backend.Factory
	Identity       identity.Cache
	Queue          service.Enqueuer
	Events         events.Publisher
	Metrics        *service.MetricsService
	Cache          *service.CacheService
	CacheTTL       time.Duration
	Storage        *storage.LocalStorage
	Signer         *storage.SignedURLSigner
	Devices        classroom.MediaDevices
	Simulator      classroom.Simulator
	Classroom      classroom.Config
	MeetingBaseURL string
	DownloadBase   string
	Validator      *validator.Validate
	Logger         *zap.Logger
}

// Workspace is everything one browser session owns.
type Workspace struct {
	ID          string
	Client      backend.Client
	Store       *state.Store
	Navigator   *navigation.Navigator
	Session     *service.SessionController
	Dashboard   *service.DashboardService
	Assignments *service.AssignmentService
	Gradebook   *service.GradebookService
	Classes     *service.ClassService
	Room        *classroom.Room

	lastSeen atomic.Int64
	closers  []func()
}

// New wires a signed-out workspace. Section listeners are subscribed in a fixed order:
// dashboard, assignments, grades, classes.
func New(deps Deps) *Workspace {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	id := uuid.NewString()
	logger := deps.Logger.With(zap.String("workspace_id", id))

	client := deps.Backend()
	classes := repository.NewClassRepository(client)
	assignments := repository.NewAssignmentRepository(client)
	submissions := repository.NewSubmissionRepository(client)
	enrollments := repository.NewEnrollmentRepository(client)

	store := state.New()
	nav := navigation.NewNavigator(store, logger)
	dashboard := service.NewDashboardService(classes, assignments, submissions, enrollments, store, deps.Cache, deps.CacheTTL, logger)

	ws := &Workspace{
		ID:          id,
		Client:      client,
		Store:       store,
		Navigator:   nav,
		Dashboard:   dashboard,
		Assignments: service.NewAssignmentService(classes, assignments, submissions, enrollments, store, dashboard, deps.Events, deps.Validator, logger),
		Classes:     service.NewClassService(classes, enrollments, store, dashboard, deps.Events, deps.MeetingBaseURL, deps.Validator, logger),
	}
	var (
		exportStore service.ExportStorage
		signer      service.URLSigner
	)
	if deps.Storage != nil {
		exportStore = deps.Storage
	}
	if deps.Signer != nil {
		signer = deps.Signer
	}
	ws.Gradebook = service.NewGradebookService(assignments, submissions, store, exportStore, signer, deps.DownloadBase, logger)

	var joins classroom.JoinRecorder
	if deps.Metrics != nil {
		joins = deps.Metrics
	}
	ws.Room = classroom.NewRoom(classroom.Options{
		Classes:   classes,
		Store:     store,
		Devices:   deps.Devices,
		Simulator: deps.Simulator,
		Events:    deps.Events,
		Metrics:   joins,
		Config:    deps.Classroom,
		Logger:    logger,
	})
	ws.Session = service.NewSessionController(service.SessionControllerConfig{
		Auth:      client.Auth(),
		Store:     store,
		Navigator: nav,
		Identity:  deps.Identity,
		Dashboard: dashboard,
		Queue:     deps.Queue,
		Events:    deps.Events,
		Validator: deps.Validator,
		Logger:    logger,
	})

	ws.closers = append(ws.closers,
		nav.Subscribe(dashboard),
		nav.Subscribe(ws.Assignments),
		nav.Subscribe(ws.Gradebook),
		nav.Subscribe(ws.Classes),
		client.Auth().OnAuthStateChange(func(evt models.AuthEvent) {
			if evt.Type == models.AuthEventSignedOut {
				ws.Room.Leave()
			}
		}),
	)
	ws.Touch(time.Now())
	return ws
}

// DrainNotifications lets a workspace act as the response notification source.
func (w *Workspace) DrainNotifications() []models.Notification {
	return w.Store.DrainNotifications()
}

// Touch records activity for idle sweeping.
func (w *Workspace) Touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the last recorded activity.
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// Close leaves the classroom and detaches every subscription.
func (w *Workspace) Close() {
	w.Room.Leave()
	w.Room.CloseFeeds()
	for _, c := range w.closers {
		c()
	}
	w.closers = nil
	w.Session.Close()
}
