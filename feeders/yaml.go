package feeders

import (
	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file. Durations may be written as "5s".
type YamlFeeder struct {
	fileFeeder
}

// NewYamlFeeder creates a YamlFeeder for filePath.
func NewYamlFeeder(filePath string) *YamlFeeder {
	return &YamlFeeder{fileFeeder{Path: filePath, format: "yaml", unmarshal: yaml.Unmarshal}}
}

// SetVerboseDebug logs every feed through logger; nil disables it.
func (y *YamlFeeder) SetVerboseDebug(logger interface{ Debug(msg string, args ...any) }) {
	y.logger = logger
}

func (y *YamlFeeder) Feed(structure any) error {
	return y.feed(structure)
}
