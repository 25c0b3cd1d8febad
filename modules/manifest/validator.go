package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SchemaID is the $id of the embedded structured manifest schema.
const SchemaID = "https://schemas.mfekernel.dev/manifest/v2.json"

//go:embed schema.json
var schemaJSON []byte

// LegacyWarning is attached to every legacy manifest, valid or not.
const LegacyWarning = "legacy manifest shape detected; migrate to the structured shape (dependencies.runtime/peer)"

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// FieldError is one violated rule, located by a dotted field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationResult reports manifest defects as data. Valid and the presence
// of warnings are independent.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Shape    Shape        `json:"shape"`
	Errors   []FieldError `json:"errors"`
	Warnings []string     `json:"warnings"`
}

func (r *ValidationResult) addError(field, msg string, value any) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: msg, Value: value})
	r.Valid = false
}

// Summary renders the result for humans.
func (r ValidationResult) Summary() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "valid %s manifest", r.Shape)
	} else {
		fmt.Fprintf(&b, "invalid %s manifest: %d error(s)", r.Shape, len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, ", %d warning(s)", len(r.Warnings))
	}
	for _, e := range r.Errors {
		b.WriteString("\n  error: ")
		b.WriteString(e.Error())
	}
	for _, w := range r.Warnings {
		b.WriteString("\n  warning: ")
		b.WriteString(w)
	}
	return b.String()
}

// Validator checks manifests of either shape. It is safe for concurrent use.
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*validatorOptions)

type validatorOptions struct {
	lang language.Tag
}

// WithLanguage selects the language of schema error messages.
func WithLanguage(tag language.Tag) ValidatorOption {
	return func(o *validatorOptions) {
		o.lang = tag
	}
}

// NewValidator compiles the embedded structured manifest schema.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	o := validatorOptions{lang: language.English}
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompile, err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	c.RegisterFormat(&jsonschema.Format{Name: "semver", Validate: validateSemver})
	c.RegisterFormat(&jsonschema.Format{Name: "semver-range", Validate: validateSemverRange})
	c.RegisterFormat(&jsonschema.Format{Name: "module-url", Validate: validateModuleURL})
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompile, err)
	}
	schema, err := c.Compile(SchemaID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompile, err)
	}
	return &Validator{schema: schema, printer: message.NewPrinter(o.lang)}, nil
}

// Validate routes doc to the structured or legacy validator by shape.
func (v *Validator) Validate(doc Document) ValidationResult {
	if IsStructuredManifest(doc) {
		return v.ValidateStructured(doc)
	}
	return ValidateLegacy(doc)
}

// ValidateBytes parses JSON and validates it. Parse failures are reported
// as a root field error.
func (v *Validator) ValidateBytes(data []byte) ValidationResult {
	doc, err := Parse(data, FormatJSON)
	if err != nil {
		r := ValidationResult{Shape: ShapeLegacy}
		r.addError("(root)", err.Error(), nil)
		return r
	}
	return v.Validate(doc)
}

// ValidateStructured checks doc against the embedded schema and returns one
// error per violated rule.
func (v *Validator) ValidateStructured(doc Document) ValidationResult {
	r := ValidationResult{Valid: true, Shape: ShapeStructured, Errors: []FieldError{}, Warnings: []string{}}

	instance, err := normalize(doc)
	if err != nil {
		r.addError("(root)", err.Error(), nil)
		return r
	}

	if err := v.schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			r.addError("(root)", err.Error(), nil)
			return r
		}
		for _, leaf := range leaves(verr) {
			v.addLeaf(&r, instance, leaf)
		}
	}

	r.Warnings = append(r.Warnings, structuredWarnings(instance)...)
	return r
}

func (v *Validator) addLeaf(r *ValidationResult, instance map[string]any, leaf *jsonschema.ValidationError) {
	if req, ok := leaf.ErrorKind.(*kind.Required); ok {
		for _, name := range req.Missing {
			r.addError(fieldPath(append(slices.Clone(leaf.InstanceLocation), name)), "is required", nil)
		}
		return
	}
	r.addError(
		fieldPath(leaf.InstanceLocation),
		leaf.ErrorKind.LocalizedString(v.printer),
		valueAt(instance, leaf.InstanceLocation),
	)
}

// leaves flattens the cause tree to the violations that carry no causes of
// their own.
func leaves(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func structuredWarnings(instance map[string]any) []string {
	var warnings []string
	compat, _ := instance["compatibility"].(map[string]any)
	if container, _ := compat["container"].(string); container == "" {
		warnings = append(warnings, "compatibility.container is not declared; any container version will be accepted")
	}

	reqs, _ := instance["requirements"].(map[string]any)
	services, _ := reqs["services"].([]any)
	seen := make(map[string]bool)
	for _, s := range services {
		entry, _ := s.(map[string]any)
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		if seen[name] {
			warnings = append(warnings, fmt.Sprintf("requirements.services lists %q more than once", name))
		}
		seen[name] = true
	}
	return warnings
}

// ValidateLegacy applies the hand-written checks for the flat legacy shape.
// The legacy warning is always present.
func ValidateLegacy(doc Document) ValidationResult {
	r := ValidationResult{Valid: true, Shape: ShapeLegacy, Errors: []FieldError{}, Warnings: []string{LegacyWarning}}

	switch name, ok := doc["name"].(string); {
	case doc["name"] == nil:
		r.addError("name", "is required", nil)
	case !ok:
		r.addError("name", "must be a string", doc["name"])
	case !namePattern.MatchString(name):
		r.addError("name", "must match "+namePattern.String(), name)
	}

	switch version, ok := doc["version"].(string); {
	case doc["version"] == nil:
		r.addError("version", "is required", nil)
	case !ok || version == "":
		r.addError("version", "must be a non-empty string", doc["version"])
	default:
		if validateSemver(version) != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("version %q is not a valid semantic version", version))
		}
	}

	switch raw, ok := doc["url"].(string); {
	case doc["url"] == nil:
		r.addError("url", "is required", nil)
	case !ok:
		r.addError("url", "must be a string", doc["url"])
	case validateModuleURL(raw) != nil:
		r.addError("url", "must be a valid URL", raw)
	}

	if deps, present := doc["dependencies"]; present && deps != nil {
		list, ok := deps.([]any)
		if !ok {
			r.addError("dependencies", "must be an array of package names", deps)
		}
		for i, dep := range list {
			if s, ok := dep.(string); !ok || s == "" {
				r.addError("dependencies."+strconv.Itoa(i), "must be a non-empty string", dep)
			}
		}
	}
	return r
}

func validateSemver(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := semver.StrictNewVersion(s); err != nil {
		return fmt.Errorf("not a semantic version: %w", err)
	}
	return nil
}

func validateSemverRange(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := semver.NewConstraint(s); err != nil {
		return fmt.Errorf("not a semantic version range: %w", err)
	}
	return nil
}

// validateModuleURL accepts absolute http(s) URLs and host-relative paths.
func validateModuleURL(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//"):
		return nil
	case (u.Scheme == "http" || u.Scheme == "https") && u.Host != "":
		return nil
	}
	return errors.New("expected an http(s) URL or an absolute path")
}

func fieldPath(location []string) string {
	if len(location) == 0 {
		return "(root)"
	}
	return strings.Join(location, ".")
}

// valueAt returns the instance value at a JSON pointer style location.
func valueAt(instance any, location []string) any {
	cur := instance
	for _, token := range location {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[token]
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// normalize converts any decoded document into the JSON data model the
// schema validator expects.
func normalize(doc any) (map[string]any, error) {
	v, err := normalizeAny(doc)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

func normalizeAny(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("manifest is not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
