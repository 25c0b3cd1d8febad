package eventbus

import (
	"regexp"
	"time"
)

// typePattern matches namespaced event types such as "user:login" or
// "mfe:checkout:ready".
var typePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+(:[A-Za-z0-9_.-]+)+$`)

// ValidatePayload inspects the structural shape of a payload and returns a
// description of every problem found. It never fails the emit.
func ValidatePayload(p Payload) []string {
	var issues []string

	switch {
	case p.Type == "":
		issues = append(issues, "type must be a non-empty string")
	case p.Type == Wildcard:
		issues = append(issues, `type "*" is reserved for wildcard subscriptions`)
	case !typePattern.MatchString(p.Type):
		issues = append(issues, "type should be namespaced as domain:action")
	}

	if p.Timestamp.IsZero() || p.Timestamp.Before(time.Unix(0, 0)) {
		issues = append(issues, "timestamp must be a valid point in time")
	}

	if p.Source == "" {
		issues = append(issues, "source must be a non-empty string")
	}

	return issues
}

// IsNamespaced reports whether eventType follows the domain:action form.
func IsNamespaced(eventType string) bool {
	return typePattern.MatchString(eventType)
}
