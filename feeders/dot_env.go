package feeders

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DotEnvFeeder reads KEY=VALUE lines from a .env file and applies them the
// way AffixedEnvFeeder applies process environment variables. A variable
// set in the process environment wins over the file.
type DotEnvFeeder struct {
	Path   string
	Prefix string
	Suffix string
	logger debugLogger
}

// NewDotEnvFeeder creates a DotEnvFeeder for filePath.
func NewDotEnvFeeder(filePath, prefix, suffix string) *DotEnvFeeder {
	return &DotEnvFeeder{Path: filePath, Prefix: prefix, Suffix: suffix}
}

// SetVerboseDebug logs every variable applied through logger.
func (f *DotEnvFeeder) SetVerboseDebug(logger interface{ Debug(msg string, args ...any) }) {
	f.logger = logger
}

// Feed parses the file and populates structure, a pointer to a struct.
func (f *DotEnvFeeder) Feed(structure any) error {
	vars, err := ParseDotEnv(f.Path)
	if err != nil {
		return err
	}
	env := &AffixedEnvFeeder{
		Prefix: f.Prefix,
		Suffix: f.Suffix,
		logger: f.logger,
		lookup: func(name string) (string, bool) {
			if v, ok := os.LookupEnv(name); ok {
				return v, true
			}
			v, ok := vars[name]
			return v, ok
		},
	}
	return env.Feed(structure)
}

// ParseDotEnv reads a .env file. Blank lines and lines starting with # are
// skipped, an optional "export " prefix is dropped and matching single or
// double quotes around a value are removed.
func ParseDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileFeederUnavailable, err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %s:%d: expected KEY=VALUE", ErrInvalidDotEnvLine, path, lineNum)
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vars, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
