// Package manifest validates plugin module manifests, checks them against
// the host's capabilities and migrates the legacy manifest shape.
package manifest

// Document is a decoded manifest in the JSON data model. Its shape is
// detected from content, not from a version field.
type Document map[string]any

// Shape identifies which manifest layout a document uses.
type Shape string

const (
	ShapeStructured Shape = "structured"
	ShapeLegacy     Shape = "legacy"
)

// Manifest is the structured (v2) manifest shape.
type Manifest struct {
	Schema        string        `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Name          string        `json:"name" yaml:"name"`
	Version       string        `json:"version" yaml:"version"`
	URL           string        `json:"url" yaml:"url"`
	Dependencies  Dependencies  `json:"dependencies" yaml:"dependencies"`
	Compatibility Compatibility `json:"compatibility,omitzero" yaml:"compatibility,omitempty"`
	Requirements  Requirements  `json:"requirements,omitzero" yaml:"requirements,omitempty"`
	Capabilities  Capabilities  `json:"capabilities,omitzero" yaml:"capabilities,omitempty"`
	Metadata      Metadata      `json:"metadata,omitzero" yaml:"metadata,omitempty"`
	Security      Security      `json:"security,omitzero" yaml:"security,omitempty"`
	Config        ModuleConfig  `json:"config,omitzero" yaml:"config,omitempty"`
	Lifecycle     Lifecycle     `json:"lifecycle,omitzero" yaml:"lifecycle,omitempty"`
}

// Dependencies splits packages the module bundles (runtime) from those it
// expects the host to share (peer). Values are semver ranges.
type Dependencies struct {
	Runtime map[string]string `json:"runtime" yaml:"runtime"`
	Peer    map[string]string `json:"peer" yaml:"peer"`
}

// Compatibility declares the host versions the module works with.
type Compatibility struct {
	Container  string            `json:"container,omitempty" yaml:"container,omitempty"`
	Frameworks map[string]string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	Browsers   map[string]string `json:"browsers,omitempty" yaml:"browsers,omitempty"`
}

// Requirements lists the host capabilities the module needs.
type Requirements struct {
	Services    []ServiceRequirement `json:"services,omitempty" yaml:"services,omitempty"`
	Permissions []string             `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// ServiceRequirement names one container service. Version is an optional
// semver range.
type ServiceRequirement struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Capabilities describes what the module contributes to the composition.
type Capabilities struct {
	Emits   []string `json:"emits,omitempty" yaml:"emits,omitempty"`
	Listens []string `json:"listens,omitempty" yaml:"listens,omitempty"`
	Routes  []string `json:"routes,omitempty" yaml:"routes,omitempty"`
}

type Metadata struct {
	DisplayName string   `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	Repository  string   `json:"repository,omitempty" yaml:"repository,omitempty"`
	Icon        string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type Security struct {
	CSP            map[string][]string `json:"csp,omitempty" yaml:"csp,omitempty"`
	Sandbox        bool                `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`
	AllowedOrigins []string            `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
	Integrity      string              `json:"integrity,omitempty" yaml:"integrity,omitempty"`
}

type ModuleConfig struct {
	Loading LoadingConfig  `json:"loading,omitzero" yaml:"loading,omitempty"`
	Runtime map[string]any `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// LoadingConfig tunes how the host fetches the module bundle. Timeout is in
// milliseconds.
type LoadingConfig struct {
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Preload  bool   `json:"preload,omitempty" yaml:"preload,omitempty"`
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries  int    `json:"retries,omitempty" yaml:"retries,omitempty"`
}

type Lifecycle struct {
	HealthCheck *HealthCheck `json:"healthCheck,omitempty" yaml:"healthCheck,omitempty"`
}

// HealthCheck points at a module health endpoint. Interval is in
// milliseconds.
type HealthCheck struct {
	URL      string `json:"url" yaml:"url"`
	Interval int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LegacyManifest is the flat v1 manifest shape.
type LegacyManifest struct {
	Name         string         `json:"name" yaml:"name"`
	Version      string         `json:"version" yaml:"version"`
	URL          string         `json:"url" yaml:"url"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Author       string         `json:"author,omitempty" yaml:"author,omitempty"`
}

// IsStructuredManifest reports whether doc uses the structured shape: its
// dependencies field is an object with a runtime or peer key. Everything
// else, including a missing dependencies field, is legacy.
func IsStructuredManifest(doc Document) bool {
	deps, ok := doc["dependencies"].(map[string]any)
	if !ok {
		return false
	}
	_, runtime := deps["runtime"]
	_, peer := deps["peer"]
	return runtime || peer
}

// DetectShape returns the shape IsStructuredManifest selects.
func DetectShape(doc Document) Shape {
	if IsStructuredManifest(doc) {
		return ShapeStructured
	}
	return ShapeLegacy
}
