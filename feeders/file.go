// Package feeders populates configuration structs from YAML, TOML and JSON
// files and from prefixed environment variables.
package feeders

import (
	"fmt"
	"os"
	"reflect"
)

// Feeder fills a configuration struct from one source.
type Feeder interface {
	Feed(structure any) error
}

type debugLogger interface {
	Debug(msg string, args ...any)
}

// fileFeeder is the shared part of the file based feeders. Values present in
// the file overwrite the target; fields the file omits keep their values.
type fileFeeder struct {
	Path      string
	format    string
	unmarshal func([]byte, any) error
	logger    debugLogger
}

func (f *fileFeeder) feed(structure any) error {
	if !isStructPointer(structure) {
		return ErrInvalidStructure
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileFeederUnavailable, f.Path, err)
	}
	if err := f.unmarshal(data, structure); err != nil {
		return fmt.Errorf("failed to decode %s config %s: %w", f.format, f.Path, err)
	}
	if f.logger != nil {
		f.logger.Debug("Fed configuration", "format", f.format, "path", f.Path)
	}
	return nil
}

func isStructPointer(structure any) bool {
	t := reflect.TypeOf(structure)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}
