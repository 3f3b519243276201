package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	r := NewTextRenderer()
	got := r.Render("Hello {{.name}}, your plan is {{.plan}}", map[string]string{
		"name": "Ada",
		"plan": "pro",
	})
	assert.Equal(t, "Hello Ada, your plan is pro", got)
}

func TestRenderFallsBackOnParseError(t *testing.T) {
	r := NewTextRenderer()
	raw := "Hello {{.name"
	assert.Equal(t, raw, r.Render(raw, map[string]string{"name": "Ada"}))
}

func TestRenderFallsBackOnMissingKey(t *testing.T) {
	r := NewTextRenderer()
	raw := "Hello {{.missing}}"
	assert.Equal(t, raw, r.Render(raw, map[string]string{}))
}

func TestBuildContextAddsBuiltins(t *testing.T) {
	ctx := BuildContext("a@x.com", map[string]string{"name": "Ada", "email": "spoof@x.com"})
	assert.Equal(t, "Ada", ctx["name"])
	assert.Equal(t, "a@x.com", ctx["email"], "built-in email wins over supplied variable")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, ctx["date"])
}
