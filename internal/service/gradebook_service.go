package service

import (
	"context"
	"fmt"
	"html/template"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/render"
	"github.com/noah-isme/edumeet/internal/state"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/export"
)

// ExportDateLayout is the timestamp format of exported due dates.
const ExportDateLayout = "01/02/2006, 3:04:05 PM"

// GradebookHeaders is the fixed export header row.
var GradebookHeaders = []string{"Assignment", "Due Date", "Status", "Score", "Grade", "Feedback"}

// ExportStorage persists rendered export files.
type ExportStorage interface {
	Save(relPath string, data []byte) (string, error)
}

// URLSigner issues download tokens for stored exports.
type URLSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
}

// GradesView is the student's gradebook with its summary.
type GradesView struct {
	Rows    []models.GradebookRow `json:"rows"`
	Average *float64              `json:"average,omitempty"`
	Letter  string                `json:"letter,omitempty"`
	HTML    template.HTML         `json:"html"`
}

// ExportResult points at a generated export file.
type ExportResult struct {
	Format    models.ExportFormat `json:"format"`
	FileName  string              `json:"file_name"`
	URL       string              `json:"url"`
	ExpiresAt time.Time           `json:"expires_at"`
	Rows      int                 `json:"rows"`
}

// GradebookService loads the student's gradebook and exports it.
type GradebookService struct {
	assignments  assignmentRepository
	submissions  submissionRepository
	store        *state.Store
	storage      ExportStorage
	signer       URLSigner
	downloadBase string
	location     *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

// NewGradebookService constructs GradebookService. downloadBase prefixes the signed token in returned URLs.
func NewGradebookService(assignments assignmentRepository, submissions submissionRepository, store *state.Store, storage ExportStorage, signer URLSigner, downloadBase string, logger *zap.Logger) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{
		assignments:  assignments,
		submissions:  submissions,
		store:        store,
		storage:      storage,
		signer:       signer,
		downloadBase: downloadBase,
		location:     time.Local,
		logger:       logger,
		now:          time.Now,
	}
}

// OnSectionChanged reloads grades when the grades section is shown.
func (s *GradebookService) OnSectionChanged(ctx context.Context, section string) error {
	if section != navigation.SectionGrades {
		return nil
	}
	_, err := s.Load(ctx)
	return err
}

// Load fetches the student's submissions joined with their assignments into the store.
func (s *GradebookService) Load(ctx context.Context) ([]models.GradebookRow, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if user.Role() != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only students have a gradebook")
	}

	subs, err := s.submissions.ListByStudent(ctx, user.ID)
	if err != nil {
		s.logger.Warn("gradebook load failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.AssignmentID)
	}
	assignments, err := s.assignments.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("gradebook load failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	byID := make(map[string]models.Assignment, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
	}
	rows := make([]models.GradebookRow, 0, len(subs))
	for _, sub := range subs {
		a, ok := byID[sub.AssignmentID]
		if !ok {
			continue
		}
		rows = append(rows, models.GradebookRow{Submission: sub, Assignment: a})
	}
	s.store.SetGradebook(rows)
	return rows, nil
}

// View renders the cached gradebook.
func (s *GradebookService) View() GradesView {
	rows := s.store.Gradebook()
	view := GradesView{Rows: rows, HTML: render.Grades(rows, s.now())}
	if avg, ok := grading.Average(rows); ok {
		view.Average = &avg
		view.Letter = grading.LetterGrade(avg)
	}
	return view
}

// Dataset turns gradebook rows into the export table.
func (s *GradebookService) Dataset(rows []models.GradebookRow) export.Dataset {
	now := s.now()
	data := export.Dataset{
		Title:   "Gradebook",
		Headers: append([]string(nil), GradebookHeaders...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		letter := "--"
		if r.Submission.Grade != nil {
			letter = grading.LetterGrade(grading.Percentage(r.Submission.Grade, r.Assignment.MaxPoints))
		}
		feedback := ""
		if r.Submission.Feedback != nil {
			feedback = *r.Submission.Feedback
		}
		status := grading.StatusOf(r.Assignment.DueDate, r.Submission.SubmittedAt, r.Submission.Grade, now)
		data.Rows = append(data.Rows, []string{
			r.Assignment.Title,
			r.Assignment.DueDate.In(s.location).Format(ExportDateLayout),
			status.Label(),
			render.Score(r.Submission.Grade, r.Assignment.MaxPoints),
			letter,
			feedback,
		})
	}
	return data
}

func rendererFor(format models.ExportFormat) export.Renderer {
	switch format {
	case models.ExportFormatPDF:
		return export.NewPDFExporter()
	case models.ExportFormatXLSX:
		return export.NewXLSXExporter("Grades")
	default:
		return export.NewCSVExporter()
	}
}

// ExportGrades renders the cached gradebook, stores the file and returns a signed download link.
// The gradebook is read from the backend only when nothing is cached yet.
func (s *GradebookService) ExportGrades(ctx context.Context, format models.ExportFormat) (*ExportResult, error) {
	user := s.store.User()
	if user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if format == "" {
		format = models.ExportFormatCSV
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are not configured")
	}

	rows := s.store.Gradebook()
	if len(rows) == 0 {
		loaded, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		rows = loaded
	}

	content, err := rendererFor(format).Render(s.Dataset(rows))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	now := s.now()
	fileName := fmt.Sprintf("grades-%s.%s", now.UTC().Format("20060102-150405"), format)
	relPath := path.Join(user.ID, fileName)
	if _, err := s.storage.Save(relPath, content); err != nil {
		s.logger.Error("export save failed", zap.String("path", relPath), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(user.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.store.Notify(models.NotificationSuccess, "Grades exported successfully")
	return &ExportResult{
		Format:    format,
		FileName:  fileName,
		URL:       s.downloadBase + "/" + token,
		ExpiresAt: expiresAt,
		Rows:      len(rows),
	}, nil
}
