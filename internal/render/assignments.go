package render

import (
	"html/template"
	"time"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
)

type assignmentCard struct {
	ID          string
	Title       string
	ClassName   string
	Description string
	Due         time.Time
	MaxPoints   int
	Status      grading.Status
	StatusLabel string
	Graded      bool
	Score       string
	Letter      string
	Feedback    string
	CanSubmit   bool
}

var assignmentsTmpl = template.Must(template.New("assignments").Funcs(funcs).Parse(`
{{- if not .}}
<div class="empty-state"><p>No assignments found</p></div>
{{- else}}
<div class="assignments-list">
{{- range .}}
<div class="assignment-card status-{{.Status}}" data-id="{{.ID}}">
  <div class="assignment-header"><h3>{{.Title}}</h3><span class="status-badge {{.Status}}">{{.StatusLabel}}</span></div>
  {{- if .ClassName}}<p class="assignment-class">{{.ClassName}}</p>{{end}}
  {{- if .Description}}<div class="assignment-description">{{markdown .Description}}</div>{{end}}
  <div class="assignment-meta"><span>Due: {{date .Due}}</span><span>Points: {{.MaxPoints}}</span></div>
  {{- if .Graded}}<div class="assignment-grade">Grade: {{.Score}} ({{.Letter}}){{if .Feedback}}<p class="feedback">{{.Feedback}}</p>{{end}}</div>{{end}}
  {{- if .CanSubmit}}<button class="btn btn-primary submit-assignment" data-assignment="{{.ID}}">Submit</button>{{end}}
</div>
{{- end}}
</div>
{{- end}}`))

// Assignments renders the cached list under a filter. Unknown filters behave like "all".
func Assignments(items []models.AssignmentItem, filter grading.Filter, role models.UserRole, now time.Time) template.HTML {
	visible := grading.Apply(items, filter, now)
	cards := make([]assignmentCard, 0, len(visible))
	for _, item := range visible {
		status := grading.ItemStatus(item, now)
		card := assignmentCard{
			ID:          item.Assignment.ID,
			Title:       item.Assignment.Title,
			ClassName:   item.ClassName,
			Description: deref(item.Assignment.Description),
			Due:         item.Assignment.DueDate,
			MaxPoints:   item.Assignment.MaxPoints,
			Status:      status,
			StatusLabel: status.Label(),
			CanSubmit:   role == models.RoleStudent && (status == grading.StatusPending || status == grading.StatusOverdue),
		}
		if status == grading.StatusGraded {
			card.Graded = true
			card.Score = Score(item.Grade(), item.Assignment.MaxPoints)
			card.Letter = grading.LetterGrade(grading.Percentage(item.Grade(), item.Assignment.MaxPoints))
			card.Feedback = deref(item.Submission.Feedback)
		}
		cards = append(cards, card)
	}
	return execute(assignmentsTmpl, cards, "No assignments found")
}
