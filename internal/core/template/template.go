// SPDX-License-Identifier: Apache-2.0

// Package template renders checklist text: step descriptions, command lines
// and announcement bodies. Rendering is fail-soft: a broken template logs a
// warning and yields the original text so one bad definition never blocks
// the wizard.
package template

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/relwiz/relwiz/internal/core/format"
)

var includeRegex = regexp.MustCompile(`^\(\( template=(.+?) \)\)`)

// Expander renders text against named template bodies and a base context.
// The base context is re-assembled on every Render call so derived release
// values are always current.
type Expander struct {
	templates map[string]string
	base      func() map[string]interface{}
}

// New creates an expander over the given named template bodies.
func New(templates map[string]string) *Expander {
	return &Expander{
		templates: templates,
		base:      func() map[string]interface{} { return nil },
	}
}

// SetBaseContext installs the supplier for release-derived global values.
func (e *Expander) SetBaseContext(base func() map[string]interface{}) {
	if base != nil {
		e.base = base
	}
}

// HasTemplate reports whether a named template body exists.
func (e *Expander) HasTemplate(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// Render expands named-template directives and interpolates text against the
// base context merged with vars (vars win). On any rendering error the
// original text is returned unchanged.
func (e *Expander) Render(text string, vars map[string]interface{}) string {
	context := make(map[string]interface{})
	for k, v := range e.base() {
		context[k] = v
	}
	for k, v := range vars {
		context[k] = v
	}

	filled := e.replaceTemplates(text)

	tmpl, err := texttemplate.New("text").Option("missingkey=zero").Funcs(Funcs()).Parse(filled)
	if err != nil {
		fmt.Printf("Warning: error rendering template %q: %v\n", abbreviate(filled), err)
		return text
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		fmt.Printf("Warning: error rendering template %q: %v\n", abbreviate(filled), err)
		return text
	}

	return buf.String()
}

// RenderAll renders each element of a list.
func (e *Expander) RenderAll(texts []string, vars map[string]interface{}) []string {
	if texts == nil {
		return nil
	}
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.Render(t, vars))
	}
	return out
}

// replaceTemplates substitutes line-level (( template=name )) directives with
// the named template body, recursively. An unknown name leaves the directive
// line untouched.
func (e *Expander) replaceTemplates(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		match := includeRegex.FindStringSubmatch(line)
		if match == nil {
			out = append(out, line)
			continue
		}
		body, ok := e.templates[match[1]]
		if !ok {
			fmt.Printf("Warning: unknown template %q referenced\n", match[1])
			out = append(out, line)
			continue
		}
		out = append(out, e.replaceTemplates(strings.TrimSpace(body)))
	}
	return strings.Join(out, "\n")
}

// References lists the names of all (( template=name )) directives in text,
// for load-time validation of checklist definitions.
func References(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		if match := includeRegex.FindStringSubmatch(line); match != nil {
			names = append(names, match[1])
		}
	}
	return names
}

// Funcs returns the filter set available inside checklist templates.
func Funcs() texttemplate.FuncMap {
	return texttemplate.FuncMap{
		"default":    defaultValue,
		"pathJoin":   pathJoin,
		"expandHome": expandHome,
		"formatDate": formatDate,
	}
}

// defaultValue substitutes def when the piped value is missing or empty.
// Usage: {{ .git_rev | default "<git_rev>" }}
func defaultValue(def interface{}, val interface{}) interface{} {
	if val == nil {
		return def
	}
	if s, ok := val.(string); ok && s == "" {
		return def
	}
	return val
}

func pathJoin(parts ...string) string {
	return filepath.Join(parts...)
}

func expandHome(path interface{}) string {
	return format.ExpandHome(fmt.Sprintf("%v", path))
}

// formatDate renders a date as "2 January 2006", or a placeholder when the
// value is not a date yet (e.g. the release is not published).
func formatDate(val interface{}) string {
	switch d := val.(type) {
	case time.Time:
		if d.IsZero() {
			return "<date>"
		}
		return d.Format("2 January 2006")
	case *time.Time:
		if d == nil || d.IsZero() {
			return "<date>"
		}
		return d.Format("2 January 2006")
	default:
		return "<date>"
	}
}

func abbreviate(text string) string {
	if len(text) > 40 {
		return text[:40] + "..."
	}
	return text
}
