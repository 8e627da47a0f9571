package render

import (
	"html/template"
	"time"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
)

type gradeRow struct {
	Title      string
	Due        time.Time
	Status     string
	Score      string
	Percentage string
	Letter     string
	Feedback   string
}

type gradesView struct {
	Rows    []gradeRow
	Average string
	Letter  string
}

var gradesTmpl = template.Must(template.New("grades").Funcs(funcs).Parse(`
{{- if not .Rows}}
<div class="empty-state"><p>No grades yet</p></div>
{{- else}}
{{- if .Average}}<div class="grade-summary"><span class="average">{{.Average}}</span><span class="letter">{{.Letter}}</span></div>{{end}}
<table class="grades-table">
  <thead><tr><th>Assignment</th><th>Due Date</th><th>Status</th><th>Score</th><th>Percentage</th><th>Grade</th><th>Feedback</th></tr></thead>
  <tbody>
  {{- range .Rows}}
    <tr><td>{{.Title}}</td><td>{{date .Due}}</td><td>{{.Status}}</td><td>{{.Score}}</td><td>{{.Percentage}}</td><td>{{.Letter}}</td><td>{{.Feedback}}</td></tr>
  {{- end}}
  </tbody>
</table>
{{- end}}`))

// Grades renders the student's gradebook with the overall average on top.
func Grades(rows []models.GradebookRow, now time.Time) template.HTML {
	view := gradesView{Rows: make([]gradeRow, 0, len(rows))}
	for _, r := range rows {
		status := grading.StatusOf(r.Assignment.DueDate, r.Submission.SubmittedAt, r.Submission.Grade, now)
		row := gradeRow{
			Title:    r.Assignment.Title,
			Due:      r.Assignment.DueDate,
			Status:   status.Label(),
			Score:    Score(r.Submission.Grade, r.Assignment.MaxPoints),
			Feedback: deref(r.Submission.Feedback),
		}
		if r.Submission.Grade != nil {
			pct := grading.Percentage(r.Submission.Grade, r.Assignment.MaxPoints)
			row.Percentage = percent(pct)
			row.Letter = grading.LetterGrade(pct)
		} else {
			row.Percentage = "--"
			row.Letter = "--"
		}
		view.Rows = append(view.Rows, row)
	}
	if avg, ok := grading.Average(rows); ok {
		view.Average = percent(avg)
		view.Letter = grading.LetterGrade(avg)
	}
	return execute(gradesTmpl, view, "No grades yet")
}
