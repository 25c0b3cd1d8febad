package manifest

import (
	"fmt"
	"strings"
)

// peerPackages are always shared with the host, never bundled.
var peerPackages = map[string]bool{
	"react":     true,
	"react-dom": true,
	"vue":       true,
	"svelte":    true,
	"preact":    true,
	"solid-js":  true,
	"lit":       true,
	"rxjs":      true,
	"zone.js":   true,
}

var peerScopes = []string{"@angular/"}

// IsPeerPackage reports whether a legacy dependency is treated as a peer.
func IsPeerPackage(name string) bool {
	if peerPackages[name] {
		return true
	}
	for _, scope := range peerScopes {
		if strings.HasPrefix(name, scope) {
			return true
		}
	}
	return false
}

// MigrateToV2 converts a legacy manifest to the structured shape. It never
// modifies legacy. Dependencies are split with a fixed allow-list of UI
// framework packages, the container range is "*" and metadata is carried
// over where the structured shape has a field for it.
func MigrateToV2(legacy *LegacyManifest) *Manifest {
	m := &Manifest{
		Schema:  SchemaID,
		Name:    legacy.Name,
		Version: legacy.Version,
		URL:     legacy.URL,
		Dependencies: Dependencies{
			Runtime: map[string]string{},
			Peer:    map[string]string{},
		},
		Compatibility: Compatibility{Container: "*"},
	}

	for _, dep := range legacy.Dependencies {
		name, rng := splitDependency(dep)
		if name == "" {
			continue
		}
		if IsPeerPackage(name) {
			m.Dependencies.Peer[name] = rng
		} else {
			m.Dependencies.Runtime[name] = rng
		}
	}

	m.Metadata = Metadata{
		DisplayName: stringField(legacy.Metadata, "displayName"),
		Description: firstNonEmpty(legacy.Description, stringField(legacy.Metadata, "description")),
		Author:      firstNonEmpty(legacy.Author, stringField(legacy.Metadata, "author")),
		License:     stringField(legacy.Metadata, "license"),
		Repository:  stringField(legacy.Metadata, "repository"),
		Icon:        stringField(legacy.Metadata, "icon"),
	}
	if tags, ok := legacy.Metadata["tags"].([]any); ok {
		for _, tag := range tags {
			m.Metadata.Tags = append(m.Metadata.Tags, fmt.Sprint(tag))
		}
	}
	return m
}

// splitDependency parses "name" or "name@range", including scoped packages
// such as "@angular/core@^17.0.0". A missing range becomes "*".
func splitDependency(dep string) (name, rng string) {
	dep = strings.TrimSpace(dep)
	if at := strings.LastIndex(dep, "@"); at > 0 {
		name, rng = dep[:at], dep[at+1:]
	} else {
		name = dep
	}
	if rng == "" {
		rng = "*"
	}
	return name, rng
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
