package render

import (
	"html/template"
	"strconv"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
)

type statCard struct {
	Label string
	Value string
}

type dashboardView struct {
	Greeting string
	Cards    []statCard
	Upcoming *models.Class
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(funcs).Parse(`
<div class="dashboard">
  {{- if .Greeting}}<h2 class="welcome">Welcome back, {{.Greeting}}</h2>{{end}}
  <div class="stats-grid">
  {{- range .Cards}}
    <div class="stat-card"><span class="stat-value">{{.Value}}</span><span class="stat-label">{{.Label}}</span></div>
  {{- end}}
  </div>
  {{- with .Upcoming}}
  <div class="upcoming-class"><h3>Next class: {{.Name}}</h3><p>{{date .Schedule}} ({{.DurationMinutes}} min)</p></div>
  {{- else}}
  <div class="empty-state"><p>No upcoming classes</p></div>
  {{- end}}
</div>`))

// Dashboard renders the role-specific stats cards.
func Dashboard(stats models.DashboardStats, role models.UserRole, displayName string) template.HTML {
	view := dashboardView{Greeting: displayName, Upcoming: stats.UpcomingClass}
	if role == models.RoleTeacher {
		view.Cards = []statCard{
			{Label: "My Classes", Value: strconv.Itoa(stats.ClassCount)},
			{Label: "Submissions to Grade", Value: strconv.Itoa(stats.SubmissionsToGrade)},
		}
	} else {
		avg := "--"
		if stats.AverageGrade != nil {
			avg = percent(*stats.AverageGrade) + " " + grading.LetterGrade(*stats.AverageGrade)
		}
		view.Cards = []statCard{
			{Label: "Enrolled Classes", Value: strconv.Itoa(stats.ClassCount)},
			{Label: "Pending Assignments", Value: strconv.Itoa(stats.PendingCount)},
			{Label: "Average Grade", Value: avg},
		}
	}
	return execute(dashboardTmpl, view, "Dashboard unavailable")
}
