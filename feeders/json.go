package feeders

import (
	"encoding/json"
)

// JSONFeeder reads a JSON file. encoding/json has no duration syntax, so
// durations are given in nanoseconds.
type JSONFeeder struct {
	fileFeeder
}

// NewJSONFeeder creates a JSONFeeder for filePath.
func NewJSONFeeder(filePath string) *JSONFeeder {
	return &JSONFeeder{fileFeeder{Path: filePath, format: "json", unmarshal: json.Unmarshal}}
}

// SetVerboseDebug logs every feed through logger; nil disables it.
func (j *JSONFeeder) SetVerboseDebug(logger interface{ Debug(msg string, args ...any) }) {
	j.logger = logger
}

func (j *JSONFeeder) Feed(structure any) error {
	return j.feed(structure)
}
