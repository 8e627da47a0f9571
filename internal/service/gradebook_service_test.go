package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/storage"
)

func newGradebookServiceForTest(t *testing.T, f *fixture) (*GradebookService, *storage.LocalStorage, *storage.SignedURLSigner) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewGradebookService(f.assignments, f.submissions, f.store, store, signer, "/api/v1/exports", nil)
	svc.now = func() time.Time { return f.now }
	svc.location = time.UTC
	return svc, store, signer
}

func TestGradebookLoadStudentOnly(t *testing.T) {
	f := newFixture(t)
	f.signIn(teacherUser)
	svc, _, _ := newGradebookServiceForTest(t, f)

	_, err := svc.Load(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestGradebookViewSummarises(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _, _ := newGradebookServiceForTest(t, f)

	rows, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	view := svc.View()
	require.NotNil(t, view.Average)
	assert.InDelta(t, 90.0, *view.Average, 0.001)
	assert.Equal(t, "A-", view.Letter)
	assert.Contains(t, string(view.HTML), "Essay")
}

func TestGradebookDatasetFormatsRows(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newGradebookServiceForTest(t, f)
	feedback := "Nice work, but check units"
	grade := 15.0
	due := time.Date(2025, 3, 7, 14, 5, 9, 0, time.UTC)

	data := svc.Dataset([]models.GradebookRow{
		{
			Assignment: models.Assignment{Title: "Lab report", DueDate: due, MaxPoints: 20},
			Submission: models.Submission{SubmittedAt: &due, Grade: &grade, Feedback: &feedback},
		},
		{
			Assignment: models.Assignment{Title: "Quiz 1", DueDate: due, MaxPoints: 100},
			Submission: models.Submission{SubmittedAt: &due},
		},
	})

	assert.Equal(t, GradebookHeaders, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"Lab report", "03/07/2025, 2:05:09 PM", "Graded", "15/20", "C", "Nice work, but check units"}, data.Rows[0])
	assert.Equal(t, "Submitted", data.Rows[1][2])
	assert.Equal(t, "--", data.Rows[1][4])
}

func TestExportGradesCSV(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, store, signer := newGradebookServiceForTest(t, f)

	result, err := svc.ExportGrades(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.Equal(t, 1, result.Rows)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	owner, rel, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, studentUser.ID, owner)
	assert.Equal(t, studentUser.ID+"/"+result.FileName, rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, GradebookHeaders, records[0])
	assert.Equal(t, "Good structure, cite sources", records[1][5])
	assert.Contains(t, string(raw), `"Good structure, cite sources"`)
}

func TestExportGradesPDFAndXLSX(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _, _ := newGradebookServiceForTest(t, f)

	for _, format := range []models.ExportFormat{models.ExportFormatPDF, models.ExportFormatXLSX} {
		result, err := svc.ExportGrades(context.Background(), format)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(result.FileName, "."+string(format)))
	}
}

func TestExportGradesRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)
	f.signIn(studentUser)
	svc, _, _ := newGradebookServiceForTest(t, f)

	_, err := svc.ExportGrades(context.Background(), "docx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
