package web

import (
	"bytes"
	htmltemplate "html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
)

func TestTemplates_RenderTodos(t *testing.T) {
	tmpl := Templates(time.UTC)
	due := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

	groups := struct {
		Overdue, DueToday, DueLater, Completed []model.Task
	}{
		DueLater: []model.Task{{ID: 3, Title: "Buy <milk>", DueDate: due}},
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "todos.tmpl", map[string]any{
		"title":     "Todo Manager",
		"csrfToken": "tok",
		"errors":    map[string]string{"title": "Title is required"},
		"form":      struct{ Title, DueDate string }{},
		"user":      &model.User{FirstName: "Ada", LastName: "L"},
		"groups":    groups,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<meta name="csrf-token" content="tok">`)
	assert.Contains(t, out, `<input type="hidden" name="_csrf" value="tok">`)
	assert.Contains(t, out, "Signed in as Ada L")
	assert.Contains(t, out, "Buy &lt;milk&gt;")
	assert.Contains(t, out, "2026-10-20")
	assert.Contains(t, out, `<span id="count-due-later">1</span>`)
	assert.Contains(t, out, `<span id="count-overdue">0</span>`)
	assert.Contains(t, out, "Title is required")
}

func TestTemplates_DateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	tmpl := Templates(loc)

	due := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	out, err := render(tmpl, `{{date .}}`, due)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", out)
}

func TestDictRejectsOddArgs(t *testing.T) {
	_, err := render(Templates(nil), `{{dict "a"}}`, nil)
	assert.Error(t, err)
}

func render(base *htmltemplate.Template, text string, data any) (string, error) {
	clone, err := base.Clone()
	if err != nil {
		return "", err
	}
	tmpl, err := clone.New("inline").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	return buf.String(), err
}
