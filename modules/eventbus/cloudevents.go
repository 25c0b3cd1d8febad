package eventbus

import (
	"fmt"
	"strings"
	"unicode"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// CloudEvent converts the payload into a CloudEvents v1.0 event so history
// can be exported to tooling that speaks the CloudEvents format. Metadata
// keys become extensions; names are reduced to the lowercase alphanumerics
// CloudEvents allows and values are stringified.
func (p Payload) CloudEvent() (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetSpecVersion(cloudevents.VersionV1)
	event.SetID(p.ID)
	event.SetType(p.Type)
	event.SetSource(p.Source)
	event.SetTime(p.Timestamp)

	if p.Data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, p.Data); err != nil {
			return event, fmt.Errorf("failed to encode payload data for %s: %w", p.Type, err)
		}
	}

	for key, value := range p.Metadata {
		name := extensionName(key)
		if name == "" {
			continue
		}
		event.SetExtension(name, fmt.Sprint(value))
	}

	if err := event.Validate(); err != nil {
		return event, fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return event, nil
}

// CloudEvents converts payloads in order; the first conversion error aborts.
func CloudEvents(payloads []Payload) ([]cloudevents.Event, error) {
	events := make([]cloudevents.Event, 0, len(payloads))
	for _, p := range payloads {
		event, err := p.CloudEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func extensionName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 20 {
		name = name[:20]
	}
	return name
}
