// Package render turns cached state into HTML fragments. Every function is pure and total:
// an empty input renders an empty-state placeholder and there is no error path.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// DisplayLayout is used for dates shown in fragments.
const DisplayLayout = "Jan 2, 2006 3:04 PM"

// Raw HTML in descriptions is escaped because WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"date":     func(t time.Time) string { return t.Local().Format(DisplayLayout) },
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func execute(t *template.Template, data interface{}, fallback string) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return template.HTML(`<div class="empty-state"><p>` + template.HTMLEscapeString(fallback) + `</p></div>`)
	}
	return template.HTML(strings.TrimSpace(buf.String()))
}

// Score renders "<grade>/<max_points>" or "--" when ungraded.
func Score(grade *float64, maxPoints int) string {
	if grade == nil {
		return "--"
	}
	return strconv.FormatFloat(*grade, 'f', -1, 64) + "/" + strconv.Itoa(maxPoints)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
