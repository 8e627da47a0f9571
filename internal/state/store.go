// Package state holds the per-session application state that controllers write and renderers read.
package state

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edumeet/internal/models"
)

// LoginTabLogin is the login screen tab shown after sign-out.
const LoginTabLogin = "login"

// Snapshot is a point-in-time copy of the store. Slices are copied, so callers may keep it.
type Snapshot struct {
	User         *models.User
	Role         models.UserRole
	Section      string
	InClass      bool
	CurrentClass *models.Class
	ShellVisible bool
	LoginTab     string

	TeacherClasses     []models.Class
	EnrolledClasses    []models.Class
	PendingSubmissions []models.Submission
	PendingAssignments []models.Assignment
	Stats              models.DashboardStats
	Assignments        []models.AssignmentItem
	Gradebook          []models.GradebookRow
}

// Store is the explicit context object every component of a workspace shares.
// Each method is one atomic write or read.
type Store struct {
	mu            sync.RWMutex
	snap          Snapshot
	notifications []models.Notification
	now           func() time.Time
}

// New returns a store with signed-out defaults.
func New() *Store {
	s := &Store{now: time.Now}
	s.snap = defaults()
	return s
}

func defaults() Snapshot {
	return Snapshot{LoginTab: LoginTabLogin}
}

// Snapshot copies the whole record.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() Snapshot {
	out := s.snap
	if s.snap.User != nil {
		u := *s.snap.User
		out.User = &u
	}
	if s.snap.CurrentClass != nil {
		c := *s.snap.CurrentClass
		out.CurrentClass = &c
	}
	out.TeacherClasses = append([]models.Class(nil), s.snap.TeacherClasses...)
	out.EnrolledClasses = append([]models.Class(nil), s.snap.EnrolledClasses...)
	out.PendingSubmissions = append([]models.Submission(nil), s.snap.PendingSubmissions...)
	out.PendingAssignments = append([]models.Assignment(nil), s.snap.PendingAssignments...)
	out.Assignments = append([]models.AssignmentItem(nil), s.snap.Assignments...)
	out.Gradebook = append([]models.GradebookRow(nil), s.snap.Gradebook...)
	return out
}

// User returns a copy of the current user, or nil when signed out.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.User == nil {
		return nil
	}
	u := *s.snap.User
	return &u
}

// Role returns the current role, empty when signed out.
func (s *Store) Role() models.UserRole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Role
}

// SetUser stores the user and derives the role from its metadata.
func (s *Store) SetUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.User = &user
	s.snap.Role = user.UserMetadata.Role
}

// ShowShell reveals the application shell.
func (s *Store) ShowShell() {
	s.mu.Lock()
	s.snap.ShellVisible = true
	s.mu.Unlock()
}

// SetSection records the visible section.
func (s *Store) SetSection(id string) {
	s.mu.Lock()
	s.snap.Section = id
	s.mu.Unlock()
}

// Section returns the visible section.
func (s *Store) Section() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Section
}

// SetClassroom mirrors the classroom flags.
func (s *Store) SetClassroom(inClass bool, class *models.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.InClass = inClass
	if class == nil {
		s.snap.CurrentClass = nil
		return
	}
	c := *class
	s.snap.CurrentClass = &c
}

// SetDashboardFor writes dashboard data only if userID is still the signed-in user.
// Async loaders finishing after a sign-out or a different sign-in are dropped.
func (s *Store) SetDashboardFor(userID string, data models.DashboardData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.User == nil || s.snap.User.ID != userID {
		return false
	}
	s.snap.TeacherClasses = data.TeacherClasses
	s.snap.EnrolledClasses = data.EnrolledClasses
	s.snap.PendingSubmissions = data.PendingSubmissions
	s.snap.PendingAssignments = data.PendingAssignments
	s.snap.Stats = data.Stats
	return true
}

// SetTeacherClasses replaces the teacher's class list.
func (s *Store) SetTeacherClasses(classes []models.Class) {
	s.mu.Lock()
	s.snap.TeacherClasses = classes
	s.snap.Stats.ClassCount = len(classes)
	s.mu.Unlock()
}

// TeacherClasses returns a copy of the teacher's class list.
func (s *Store) TeacherClasses() []models.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Class(nil), s.snap.TeacherClasses...)
}

// SetAssignments replaces the cached assignment list.
func (s *Store) SetAssignments(items []models.AssignmentItem) {
	s.mu.Lock()
	s.snap.Assignments = items
	s.mu.Unlock()
}

// Assignments returns a copy of the cached list.
func (s *Store) Assignments() []models.AssignmentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AssignmentItem(nil), s.snap.Assignments...)
}

// PatchSubmission attaches a freshly written submission to the cached assignment in place.
// Grade and feedback stay whatever the cache held until the next full reload.
func (s *Store) PatchSubmission(sub models.Submission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snap.Assignments {
		if s.snap.Assignments[i].Assignment.ID != sub.AssignmentID {
			continue
		}
		item := s.snap.Assignments[i]
		if item.Submission != nil {
			patched := *item.Submission
			patched.SubmittedAt = sub.SubmittedAt
			patched.Content = sub.Content
			item.Submission = &patched
		} else {
			copied := sub
			item.Submission = &copied
		}
		s.snap.Assignments[i] = item
		return true
	}
	return false
}

// SetGradebook replaces the cached submission/assignment join.
func (s *Store) SetGradebook(rows []models.GradebookRow) {
	s.mu.Lock()
	s.snap.Gradebook = rows
	s.mu.Unlock()
}

// Gradebook returns a copy of the cached join.
func (s *Store) Gradebook() []models.GradebookRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.GradebookRow(nil), s.snap.Gradebook...)
}

// Notify queues a toast.
func (s *Store) Notify(level models.NotificationLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, models.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now().UTC(),
	})
}

// Notifications peeks at the queue without draining it.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification(nil), s.notifications...)
}

// DrainNotifications pops every queued toast.
func (s *Store) DrainNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notifications
	s.notifications = nil
	return out
}

// Clear resets the record to its signed-out defaults. Pending notifications survive so the
// sign-out response can still report them.
func (s *Store) Clear() {
	s.mu.Lock()
	s.snap = defaults()
	s.mu.Unlock()
}
