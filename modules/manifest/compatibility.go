package manifest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/Masterminds/semver/v3"
)

// HostInfo describes what the host actually provides.
type HostInfo struct {
	// ContainerVersion is the kernel version compatibility.container is
	// checked against.
	ContainerVersion string `json:"containerVersion" yaml:"containerVersion" toml:"containerVersion" env:"CONTAINER_VERSION"`

	// Frameworks maps shared UI framework packages to their versions.
	Frameworks map[string]string `json:"frameworks" yaml:"frameworks" toml:"frameworks"`

	// Services lists the container service names available to modules.
	Services []string `json:"services" yaml:"services" toml:"services"`

	// ServiceVersions optionally reports service contract versions.
	ServiceVersions map[string]string `json:"serviceVersions" yaml:"serviceVersions" toml:"serviceVersions"`
}

// CompatibilityResult is computed fresh for each check; nothing is cached.
type CompatibilityResult struct {
	Name       string   `json:"name"`
	Compatible bool     `json:"compatible"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

func (r *CompatibilityResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Compatible = false
}

func (r *CompatibilityResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Summary renders the result for humans.
func (r CompatibilityResult) Summary() string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString(r.Name)
		b.WriteString(": ")
	}
	if r.Compatible {
		b.WriteString("compatible")
	} else {
		fmt.Fprintf(&b, "incompatible, %d error(s)", len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, ", %d warning(s)", len(r.Warnings))
	}
	for _, e := range r.Errors {
		b.WriteString("\n  error: ")
		b.WriteString(e)
	}
	for _, w := range r.Warnings {
		b.WriteString("\n  warning: ")
		b.WriteString(w)
	}
	return b.String()
}

// Checker compares manifests with a host description.
type Checker struct {
	host     HostInfo
	services map[string]bool
}

// NewChecker creates a checker for host.
func NewChecker(host HostInfo) *Checker {
	services := make(map[string]bool, len(host.Services))
	for _, name := range host.Services {
		services[name] = true
	}
	return &Checker{host: host, services: services}
}

// Host returns the host description the checker uses.
func (c *Checker) Host() HostInfo {
	return c.host
}

// Check verifies one manifest. A module whose result is not compatible must
// not be loaded.
func (c *Checker) Check(m *Manifest) CompatibilityResult {
	r := CompatibilityResult{Name: m.Name, Compatible: true, Errors: []string{}, Warnings: []string{}}
	if m.Name == "" {
		r.errorf("manifest has no name")
	}

	c.checkContainer(&r, m.Compatibility.Container)
	c.checkFrameworks(&r, m)
	c.checkServices(&r, m.Requirements.Services)
	checkEvents(&r, m.Capabilities)
	return r
}

// CheckRegistry checks every manifest. A name that appears more than once
// makes its entry incompatible.
func (c *Checker) CheckRegistry(manifests []*Manifest) map[string]CompatibilityResult {
	results := make(map[string]CompatibilityResult, len(manifests))
	for i, m := range manifests {
		if m == nil {
			continue
		}
		if prev, dup := results[m.Name]; dup {
			prev.errorf("duplicate manifest name %q (entry %d)", m.Name, i)
			results[m.Name] = prev
			continue
		}
		results[m.Name] = c.Check(m)
	}
	return results
}

func (c *Checker) checkContainer(r *CompatibilityResult, rng string) {
	if rng == "" {
		return
	}
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		r.errorf("invalid container version range %q: %v", rng, err)
		return
	}
	if c.host.ContainerVersion == "" {
		r.warnf("host container version is unknown; cannot verify range %q", rng)
		return
	}
	hostV, err := semver.NewVersion(c.host.ContainerVersion)
	if err != nil {
		r.errorf("invalid host container version %q: %v", c.host.ContainerVersion, err)
		return
	}
	if !constraint.Check(hostV) {
		r.errorf("module requires container %s, but host provides %s", rng, c.host.ContainerVersion)
	}
}

func (c *Checker) checkFrameworks(r *CompatibilityResult, m *Manifest) {
	for _, name := range slices.Sorted(maps.Keys(m.Compatibility.Frameworks)) {
		rng := m.Compatibility.Frameworks[name]
		hostVersion, ok := c.host.Frameworks[name]
		if !ok {
			r.warnf("framework %s is not provided by the host", name)
			continue
		}
		if msg := rangeMismatch(rng, hostVersion); msg != "" {
			r.errorf("framework %s: %s", name, msg)
		}
	}

	// Shared peers must also fit what the host shares.
	for _, name := range slices.Sorted(maps.Keys(m.Dependencies.Peer)) {
		if _, declared := m.Compatibility.Frameworks[name]; declared {
			continue
		}
		hostVersion, ok := c.host.Frameworks[name]
		if !ok {
			continue
		}
		if msg := rangeMismatch(m.Dependencies.Peer[name], hostVersion); msg != "" {
			r.errorf("peer dependency %s: %s", name, msg)
		}
	}
}

func (c *Checker) checkServices(r *CompatibilityResult, reqs []ServiceRequirement) {
	for _, req := range reqs {
		if !c.services[req.Name] {
			if req.Optional {
				r.warnf("optional service %q is not available", req.Name)
			} else {
				r.errorf("required service %q is not available", req.Name)
			}
			continue
		}
		if req.Version == "" {
			continue
		}
		hostVersion, ok := c.host.ServiceVersions[req.Name]
		if !ok {
			r.warnf("host does not report a version for service %q; cannot verify range %q", req.Name, req.Version)
			continue
		}
		if msg := rangeMismatch(req.Version, hostVersion); msg != "" {
			if req.Optional {
				r.warnf("optional service %q: %s", req.Name, msg)
			} else {
				r.errorf("service %q: %s", req.Name, msg)
			}
		}
	}
}

func checkEvents(r *CompatibilityResult, caps Capabilities) {
	for _, t := range caps.Emits {
		switch {
		case t == eventbus.Wildcard:
			r.errorf("emitted event type %q is reserved for wildcard subscriptions", t)
		case !eventbus.IsNamespaced(t):
			r.errorf("emitted event type %q must be namespaced as domain:action", t)
		}
	}
	for _, t := range caps.Listens {
		if t != eventbus.Wildcard && !eventbus.IsNamespaced(t) {
			r.warnf("listened event type %q is not namespaced as domain:action", t)
		}
	}
}

// rangeMismatch returns a description of why version does not satisfy rng,
// or "" when it does.
func rangeMismatch(rng, version string) string {
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return fmt.Sprintf("invalid version range %q: %v", rng, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Sprintf("host version %q is not a semantic version", version)
	}
	if !constraint.Check(v) {
		return fmt.Sprintf("requires %s, but host provides %s", rng, version)
	}
	return ""
}
