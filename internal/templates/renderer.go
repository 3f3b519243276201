package templates

import (
	"strings"
	"text/template"
	"time"
)

// Renderer personalizes template strings against a per-recipient context.
// Implementations must be lenient: a render failure returns the raw input so
// a bad placeholder never aborts a send.
type Renderer interface {
	Render(tmpl string, context map[string]string) string
}

// BuildContext merges recipient variables with the built-in personalization
// keys. Built-ins win over recipient-supplied values of the same name.
func BuildContext(email string, variables map[string]string) map[string]string {
	context := make(map[string]string, len(variables)+2)
	for k, v := range variables {
		context[k] = v
	}
	context["email"] = email
	context["date"] = time.Now().UTC().Format("2006-01-02")
	return context
}

// TextRenderer renders with Go's text/template syntax ({{.name}}).
type TextRenderer struct{}

// NewTextRenderer creates a text/template-backed renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render executes tmpl against context, returning tmpl unchanged on any
// parse or execute error.
func (r *TextRenderer) Render(tmpl string, context map[string]string) string {
	parsed, err := template.New("message").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var out strings.Builder
	if err := parsed.Execute(&out, context); err != nil {
		return tmpl
	}
	return out.String()
}
