package render

import (
	"html/template"

	"github.com/noah-isme/edumeet/internal/models"
)

var classesTmpl = template.Must(template.New("classes").Funcs(funcs).Parse(`
{{- if not .}}
<div class="empty-state"><p>No upcoming classes</p></div>
{{- else}}
<ul class="class-list">
{{- range .}}
  <li class="class-item" data-id="{{.ID}}"><strong>{{.Name}}</strong> <span>{{date .Schedule}}</span> <span>{{.DurationMinutes}} min</span>
  <button class="btn join-class" data-class="{{.ID}}">Join</button></li>
{{- end}}
</ul>
{{- end}}`))

type classroomView struct {
	InClass bool
	Class   *models.Class
}

var classroomTmpl = template.Must(template.New("classroom").Funcs(funcs).Parse(`
{{- if .InClass}}
<div class="classroom active"{{with .Class}} data-class="{{.ID}}"{{end}}>
  {{- with .Class}}<h2>{{.Name}}</h2>{{end}}
  <div id="video-grid" class="video-grid"></div>
  <div class="classroom-sidebar"><ul id="participants"></ul><div id="chat"></div></div>
</div>
{{- else}}
<div class="classroom idle"><button class="btn btn-primary join-class">Join next class</button></div>
{{- end}}`))

// Classes renders a class list with join buttons.
func Classes(classes []models.Class) template.HTML {
	return execute(classesTmpl, classes, "No upcoming classes")
}

// Classroom renders the room shell; tiles and chat arrive over the event feed.
func Classroom(inClass bool, class *models.Class) template.HTML {
	return execute(classroomTmpl, classroomView{InClass: inClass, Class: class}, "Classroom unavailable")
}

var assignmentFormTmpl = template.Must(template.New("assignment-form").Parse(`
<form class="assignment-form" data-action="create-assignment">
  <label>Title <input name="title" required></label>
  <label>Description <textarea name="description"></textarea></label>
  <label>Due date <input name="due_date" type="datetime-local" required></label>
  <label>Max points <input name="max_points" type="number" min="1" value="{{.DefaultMaxPoints}}"></label>
  <label>Class <select name="class_id" required>
    <option value="">Select a class</option>
    {{- range .Classes}}<option value="{{.ID}}">{{.Name}}</option>{{end}}
  </select></label>
  <button type="submit" class="btn btn-primary">Create</button>
</form>`))

// AssignmentForm renders the create-assignment form for a teacher's classes.
func AssignmentForm(form models.AssignmentForm) template.HTML {
	return execute(assignmentFormTmpl, form, "Form unavailable")
}
