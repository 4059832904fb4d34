// SPDX-License-Identifier: Apache-2.0

package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderInterpolation(t *testing.T) {
	e := New(nil)
	e.SetBaseContext(func() map[string]interface{} {
		return map[string]interface{}{
			"project":         "myproject",
			"release_version": "9.1.0",
		}
	})

	result := e.Render("Releasing {{ .project }} {{ .release_version }}", nil)
	assert.Equal(t, "Releasing myproject 9.1.0", result)
}

func TestRenderVarsOverrideBase(t *testing.T) {
	e := New(nil)
	e.SetBaseContext(func() map[string]interface{} {
		return map[string]interface{}{"name": "base"}
	})

	result := e.Render("{{ .name }}", map[string]interface{}{"name": "local"})
	assert.Equal(t, "local", result)
}

func TestRenderPlainTextUnchanged(t *testing.T) {
	e := New(nil)
	text := "no placeholders here"
	assert.Equal(t, text, e.Render(text, nil))
}

func TestRenderFailSoft(t *testing.T) {
	e := New(nil)

	// Broken syntax must yield the original text, not an error or empty
	// output.
	broken := "unclosed {{ .foo"
	assert.Equal(t, broken, e.Render(broken, nil))
}

func TestRenderDefaultFilter(t *testing.T) {
	e := New(nil)

	result := e.Render(`{{ .missing | default "fallback" }}`, nil)
	assert.Equal(t, "fallback", result)

	result = e.Render(`{{ .val | default "fallback" }}`, map[string]interface{}{"val": ""})
	assert.Equal(t, "fallback", result)

	result = e.Render(`{{ .val | default "fallback" }}`, map[string]interface{}{"val": "actual"})
	assert.Equal(t, "actual", result)
}

func TestRenderFormatDate(t *testing.T) {
	e := New(nil)

	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	result := e.Render("{{ .d | formatDate }}", map[string]interface{}{"d": date})
	assert.Equal(t, "14 March 2026", result)

	result = e.Render("{{ .d | formatDate }}", map[string]interface{}{"d": time.Time{}})
	assert.Equal(t, "<date>", result)

	result = e.Render("{{ .d | formatDate }}", map[string]interface{}{"d": "not a date"})
	assert.Equal(t, "<date>", result)
}

func TestReplaceTemplates(t *testing.T) {
	e := New(map[string]string{
		"greeting": "Hello {{ .name }}",
	})

	text := "before\n(( template=greeting ))\nafter"
	result := e.Render(text, map[string]interface{}{"name": "world"})
	assert.Equal(t, "before\nHello world\nafter", result)
}

func TestReplaceTemplatesRecursive(t *testing.T) {
	e := New(map[string]string{
		"outer": "outer start\n(( template=inner ))\nouter end",
		"inner": "inner body",
	})

	result := e.Render("(( template=outer ))", nil)
	assert.Equal(t, "outer start\ninner body\nouter end", result)
}

func TestReplaceTemplatesUnknownNameLeftAlone(t *testing.T) {
	e := New(nil)

	text := "(( template=nope ))"
	assert.Equal(t, text, e.Render(text, nil))
}

func TestReferences(t *testing.T) {
	text := "intro\n(( template=vote_mail ))\nmiddle\n(( template=announce_mail ))"
	assert.Equal(t, []string{"vote_mail", "announce_mail"}, References(text))
	assert.Nil(t, References("no directives"))
}

func TestHasTemplate(t *testing.T) {
	e := New(map[string]string{"a": "body"})
	assert.True(t, e.HasTemplate("a"))
	assert.False(t, e.HasTemplate("b"))
}

func TestRenderAll(t *testing.T) {
	e := New(nil)
	e.SetBaseContext(func() map[string]interface{} {
		return map[string]interface{}{"v": "1.0.0"}
	})

	result := e.RenderAll([]string{"a {{ .v }}", "b {{ .v }}"}, nil)
	assert.Equal(t, []string{"a 1.0.0", "b 1.0.0"}, result)

	assert.Nil(t, e.RenderAll(nil, nil))
}

func TestRenderIdempotentOnRenderedText(t *testing.T) {
	e := New(nil)
	e.SetBaseContext(func() map[string]interface{} {
		return map[string]interface{}{"v": "2.0.0"}
	})

	once := e.Render("version {{ .v }}", nil)
	assert.Equal(t, once, e.Render(once, nil))
}
