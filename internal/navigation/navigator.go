// Package navigation owns section visibility and the role-gated navigation menu.
package navigation

import (
	"context"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/render"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

// Section ids.
const (
	SectionDashboard        = "dashboard"
	SectionAssignments      = "assignments"
	SectionGrades           = "grades"
	SectionClassroom        = "classroom"
	SectionCreateAssignment = "create-assignment"
	SectionClasses          = "classes"
)

// DefaultSection is selected right after sign-in.
const DefaultSection = SectionDashboard

var sectionLabels = map[string]string{
	SectionDashboard:        "Dashboard",
	SectionAssignments:      "Assignments",
	SectionGrades:           "Grades",
	SectionClassroom:        "Classroom",
	SectionCreateAssignment: "Create Assignment",
	SectionClasses:          "My Classes",
}

// allSections is the fixed page order.
var allSections = []string{
	SectionDashboard,
	SectionAssignments,
	SectionCreateAssignment,
	SectionGrades,
	SectionClasses,
	SectionClassroom,
}

// NavItem is one menu entry.
type NavItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// SectionState is the visibility of one section container.
type SectionState struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// View is the result of a navigation.
type View struct {
	Section  string         `json:"section"`
	Nav      []NavItem      `json:"nav"`
	Sections []SectionState `json:"sections"`
	HTML     template.HTML  `json:"html"`
}

// SectionListener is called after the visible section changes.
type SectionListener interface {
	OnSectionChanged(ctx context.Context, section string) error
}

// ListenerFunc adapts a function to SectionListener.
type ListenerFunc func(ctx context.Context, section string) error

// OnSectionChanged calls f.
func (f ListenerFunc) OnSectionChanged(ctx context.Context, section string) error {
	return f(ctx, section)
}

type registration struct {
	id       int
	listener SectionListener
}

// Navigator shows sections and notifies listeners directly, in subscription order.
type Navigator struct {
	store  *state.Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners []registration
	nav       []string
}

// NewNavigator builds a navigator with an empty menu.
func NewNavigator(store *state.Store, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{store: store, logger: logger, now: time.Now}
}

// Subscribe appends a listener and returns its unsubscribe function.
func (n *Navigator) Subscribe(l SectionListener) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, registration{id: id, listener: l})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, r := range n.listeners {
				if r.id == id {
					n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// RefreshNav recomputes the menu for a role. An empty role clears it.
func (n *Navigator) RefreshNav(role models.UserRole) []NavItem {
	var ids []string
	switch role {
	case models.RoleTeacher:
		ids = []string{SectionDashboard, SectionAssignments, SectionCreateAssignment, SectionClasses, SectionClassroom}
	case models.RoleStudent:
		ids = []string{SectionDashboard, SectionAssignments, SectionGrades, SectionClassroom}
	}
	n.mu.Lock()
	n.nav = ids
	n.mu.Unlock()
	return n.Items()
}

// Items returns the menu with the active marker on the current section.
func (n *Navigator) Items() []NavItem {
	current := n.store.Section()
	n.mu.Lock()
	defer n.mu.Unlock()
	items := make([]NavItem, len(n.nav))
	for i, id := range n.nav {
		items[i] = NavItem{ID: id, Label: sectionLabels[id], Active: id == current}
	}
	return items
}

func (n *Navigator) allowed(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.nav {
		if s == id {
			return true
		}
	}
	return false
}

// ShowSection switches the visible section, runs every listener and renders the fragment.
// Listener failures become error notifications; the navigation itself still succeeds.
func (n *Navigator) ShowSection(ctx context.Context, id string) (*View, error) {
	if _, ok := sectionLabels[id]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown section "+id)
	}
	if !n.allowed(id) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "section not available for your role")
	}

	n.store.SetSection(id)

	n.mu.Lock()
	listeners := make([]SectionListener, len(n.listeners))
	for i, r := range n.listeners {
		listeners[i] = r.listener
	}
	n.mu.Unlock()

	for _, l := range listeners {
		if err := l.OnSectionChanged(ctx, id); err != nil {
			n.logger.Warn("section listener failed", zap.String("section", id), zap.Error(err))
			n.store.Notify(models.NotificationError, appErrors.FromError(err).Message)
		}
	}

	return n.View(), nil
}

// View describes the current section without notifying anyone.
func (n *Navigator) View() *View {
	current := n.store.Section()
	sections := make([]SectionState, len(allSections))
	for i, id := range allSections {
		sections[i] = SectionState{ID: id, Visible: id == current}
	}
	return &View{
		Section:  current,
		Nav:      n.Items(),
		Sections: sections,
		HTML:     n.fragment(current),
	}
}

func (n *Navigator) fragment(id string) template.HTML {
	snap := n.store.Snapshot()
	now := n.now()
	switch id {
	case SectionDashboard:
		return render.Dashboard(snap.Stats, snap.Role, snap.User.DisplayName())
	case SectionAssignments:
		return render.Assignments(snap.Assignments, grading.FilterAll, snap.Role, now)
	case SectionGrades:
		return render.Grades(snap.Gradebook, now)
	case SectionClasses:
		return render.Classes(snap.TeacherClasses)
	case SectionCreateAssignment:
		return render.AssignmentForm(models.AssignmentForm{Classes: snap.TeacherClasses, DefaultMaxPoints: models.DefaultMaxPoints})
	case SectionClassroom:
		return render.Classroom(snap.InClass, snap.CurrentClass)
	default:
		return ""
	}
}
