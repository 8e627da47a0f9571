package service

import (
	"testing"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/repository"
	"github.com/noah-isme/edumeet/internal/state"
	"github.com/noah-isme/edumeet/pkg/backend/backendtest"
	"github.com/noah-isme/edumeet/pkg/jobs"
)

var (
	teacherUser = models.User{ID: "teacher-1", Email: "teacher@example.com", UserMetadata: models.UserMetadata{Role: models.RoleTeacher, FullName: "Ms. Rivera"}}
	studentUser = models.User{ID: "student-1", Email: "student@example.com", UserMetadata: models.UserMetadata{Role: models.RoleStudent, FullName: "Sam Lee"}}
)

type fixture struct {
	mem         *backendtest.Memory
	store       *state.Store
	classes     *repository.ClassRepository
	assignments *repository.AssignmentRepository
	submissions *repository.SubmissionRepository
	enrollments *repository.EnrollmentRepository
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := backendtest.New()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mem.Seed("classes",
		models.Class{ID: "c-math", Name: "Algebra", TeacherID: teacherUser.ID, Schedule: now.Add(2 * time.Hour), DurationMinutes: 60},
		models.Class{ID: "c-bio", Name: "Biology", TeacherID: teacherUser.ID, Schedule: now.Add(-24 * time.Hour), DurationMinutes: 45},
		models.Class{ID: "c-art", Name: "Art", TeacherID: "teacher-2", Schedule: now.Add(time.Hour), DurationMinutes: 30},
	)
	mem.Seed("enrollments",
		models.Enrollment{ID: "e1", StudentID: studentUser.ID, ClassID: "c-math"},
		models.Enrollment{ID: "e2", StudentID: studentUser.ID, ClassID: "c-bio"},
	)
	mem.Seed("assignments",
		models.Assignment{ID: "a-essay", Title: "Essay", DueDate: now.Add(-48 * time.Hour), MaxPoints: 50, ClassID: "c-bio", CreatedBy: teacherUser.ID, CreatedAt: now.Add(-96 * time.Hour)},
		models.Assignment{ID: "a-quiz", Title: "Quiz 1", DueDate: now.Add(72 * time.Hour), MaxPoints: 100, ClassID: "c-math", CreatedBy: teacherUser.ID, CreatedAt: now.Add(-24 * time.Hour)},
		models.Assignment{ID: "a-lab", Title: "Lab report", DueDate: now.Add(-time.Hour), MaxPoints: 20, ClassID: "c-bio", CreatedBy: teacherUser.ID, CreatedAt: now.Add(-72 * time.Hour)},
	)
	submittedAt := now.Add(-50 * time.Hour)
	grade := 45.0
	feedback := "Good structure, cite sources"
	mem.Seed("submissions",
		models.Submission{ID: "s-essay", AssignmentID: "a-essay", StudentID: studentUser.ID, Content: "my essay", SubmittedAt: &submittedAt, Grade: &grade, Feedback: &feedback},
	)

	return &fixture{
		mem:         mem,
		store:       state.New(),
		classes:     repository.NewClassRepository(mem),
		assignments: repository.NewAssignmentRepository(mem),
		submissions: repository.NewSubmissionRepository(mem),
		enrollments: repository.NewEnrollmentRepository(mem),
		now:         now,
	}
}

func (f *fixture) signIn(user models.User) {
	f.store.SetUser(user)
}

func (f *fixture) dashboard() *DashboardService {
	svc := NewDashboardService(f.classes, f.assignments, f.submissions, f.enrollments, f.store, nil, time.Minute, nil)
	svc.now = func() time.Time { return f.now }
	return svc
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
