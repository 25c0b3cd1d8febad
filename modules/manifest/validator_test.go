package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeDetection(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{"runtime and peer", Document{"dependencies": map[string]any{"runtime": map[string]any{}, "peer": map[string]any{}}}, true},
		{"runtime only", Document{"dependencies": map[string]any{"runtime": map[string]any{}}}, true},
		{"peer only", Document{"dependencies": map[string]any{"peer": nil}}, true},
		{"array dependencies", Document{"dependencies": []any{"react", "react-dom"}}, false},
		{"object without runtime or peer", Document{"dependencies": map[string]any{"react": "^18"}}, false},
		{"no dependencies", Document{"name": "x"}, false},
		{"string dependencies", Document{"dependencies": "react"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStructuredManifest(tt.doc))
		})
	}
}

func TestValidateRoutesByShape(t *testing.T) {
	v := mustValidator(t)

	structured := v.Validate(mustParse(t, structuredJSON))
	assert.Equal(t, ShapeStructured, structured.Shape)
	assert.True(t, structured.Valid, structured.Summary())
	assert.Empty(t, structured.Errors)
	assert.Empty(t, structured.Warnings)

	legacy := v.Validate(mustParse(t, legacyJSON))
	assert.Equal(t, ShapeLegacy, legacy.Shape)
	assert.True(t, legacy.Valid, legacy.Summary())
	assert.Equal(t, []string{LegacyWarning}, legacy.Warnings)
}

func TestValidateStructuredReportsEachViolation(t *testing.T) {
	v := mustValidator(t)
	doc := mustParse(t, `{
		"name": "9bad",
		"version": "one",
		"url": "not a url",
		"dependencies": {"runtime": {}, "peer": {"react": "!!"}},
		"compatibility": {"container": ">>1.0"},
		"requirements": {"services": [{"optional": true}]}
	}`)

	r := v.Validate(doc)

	require.False(t, r.Valid)
	fields := fieldsOf(r.Errors)
	assert.ElementsMatch(t, []string{
		"name",
		"version",
		"url",
		"dependencies.peer.react",
		"compatibility.container",
		"requirements.services.0.name",
	}, fields, r.Summary())

	for _, e := range r.Errors {
		switch e.Field {
		case "name":
			assert.Equal(t, "9bad", e.Value)
		case "compatibility.container":
			assert.Equal(t, ">>1.0", e.Value)
			assert.NotEmpty(t, e.Message)
		case "requirements.services.0.name":
			assert.Equal(t, "is required", e.Message)
			assert.Nil(t, e.Value)
		}
	}
}

func TestValidateStructuredMissingRequired(t *testing.T) {
	v := mustValidator(t)
	r := v.Validate(Document{"dependencies": map[string]any{"runtime": map[string]any{}}})

	assert.False(t, r.Valid)
	assert.ElementsMatch(t, []string{"name", "version", "url"}, fieldsOf(r.Errors))
}

func TestValidateStructuredWarnings(t *testing.T) {
	v := mustValidator(t)
	doc := mustParse(t, `{
		"name": "cart",
		"version": "1.0.0",
		"url": "/mfe/cart.js",
		"dependencies": {"runtime": {}},
		"requirements": {"services": [{"name": "logger"}, {"name": "logger"}]}
	}`)

	r := v.Validate(doc)

	assert.True(t, r.Valid, r.Summary())
	assert.Len(t, r.Warnings, 2)
	assert.Contains(t, r.Warnings[0], "compatibility.container")
	assert.Contains(t, r.Warnings[1], `"logger" more than once`)
}

func TestValidateStructuredWrongTypes(t *testing.T) {
	v := mustValidator(t)
	doc := mustParse(t, `{
		"name": "cart",
		"version": "1.0.0",
		"url": "https://cdn.example.com/cart.js",
		"dependencies": {"runtime": {"a": 1}},
		"compatibility": {"container": "^1.0.0"},
		"config": {"loading": {"strategy": "sometimes", "timeout": -1}}
	}`)

	r := v.Validate(doc)

	assert.False(t, r.Valid)
	assert.ElementsMatch(t, []string{
		"dependencies.runtime.a",
		"config.loading.strategy",
		"config.loading.timeout",
	}, fieldsOf(r.Errors))
}

func TestValidateLegacy(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		fields []string
	}{
		{"valid", legacyJSON, nil},
		{"missing everything", `{}`, []string{"name", "version", "url"}},
		{"bad name", `{"name": "has space", "version": "1.0.0", "url": "https://x.io/a.js"}`, []string{"name"}},
		{"name not string", `{"name": 4, "version": "1.0.0", "url": "https://x.io/a.js"}`, []string{"name"}},
		{"empty version", `{"name": "a", "version": "", "url": "https://x.io/a.js"}`, []string{"version"}},
		{"bad url", `{"name": "a", "version": "1.0.0", "url": "::nope"}`, []string{"url"}},
		{"object dependencies", `{"name": "a", "version": "1.0.0", "url": "/a.js", "dependencies": {"react": "^18"}}`, []string{"dependencies"}},
		{"bad dependency entry", `{"name": "a", "version": "1.0.0", "url": "/a.js", "dependencies": ["react", 3]}`, []string{"dependencies.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateLegacy(mustParse(t, tt.doc))
			assert.Equal(t, len(tt.fields) == 0, r.Valid)
			assert.ElementsMatch(t, tt.fields, fieldsOf(r.Errors))
			assert.Contains(t, r.Warnings, LegacyWarning)
		})
	}
}

func TestValidateLegacyNonSemverVersionWarns(t *testing.T) {
	r := ValidateLegacy(Document{"name": "a", "version": "latest", "url": "/a.js"})
	assert.True(t, r.Valid)
	assert.Len(t, r.Warnings, 2)
}

func TestValidateBytes(t *testing.T) {
	v := mustValidator(t)

	r := v.ValidateBytes([]byte(structuredJSON))
	assert.True(t, r.Valid)

	r = v.ValidateBytes([]byte(`{"name":`))
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "(root)", r.Errors[0].Field)

	r = v.ValidateBytes([]byte(`[1, 2]`))
	assert.False(t, r.Valid)
}

func TestValidationSummary(t *testing.T) {
	v := mustValidator(t)
	r := v.Validate(Document{"name": "a b"})
	s := r.Summary()

	assert.True(t, strings.HasPrefix(s, "invalid legacy manifest: 3 error(s), 1 warning(s)"), s)
	assert.Contains(t, s, `error: name: must match`)
	assert.Contains(t, s, "warning: "+LegacyWarning)

	assert.Equal(t, "valid structured manifest", v.Validate(mustParse(t, structuredJSON)).Summary())
}
