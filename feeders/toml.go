package feeders

import (
	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file. Durations may be written as "5s".
type TomlFeeder struct {
	fileFeeder
}

// NewTomlFeeder creates a TomlFeeder for filePath.
func NewTomlFeeder(filePath string) *TomlFeeder {
	return &TomlFeeder{fileFeeder{Path: filePath, format: "toml", unmarshal: toml.Unmarshal}}
}

// SetVerboseDebug logs every feed through logger; nil disables it.
func (t *TomlFeeder) SetVerboseDebug(logger interface{ Debug(msg string, args ...any) }) {
	t.logger = logger
}

func (t *TomlFeeder) Feed(structure any) error {
	return t.feed(structure)
}
