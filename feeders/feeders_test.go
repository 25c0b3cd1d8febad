package feeders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerConfig struct {
	HistorySize int           `json:"historySize" yaml:"historySize" toml:"historySize" env:"HISTORY_SIZE"`
	Throttle    time.Duration `json:"throttle" yaml:"throttle" toml:"throttle" env:"THROTTLE"`
}

type testConfig struct {
	Name    string      `json:"name" yaml:"name" toml:"name" env:"NAME"`
	Debug   bool        `json:"debug" yaml:"debug" toml:"debug" env:"DEBUG"`
	Ratio   float64     `json:"ratio" yaml:"ratio" toml:"ratio" env:"RATIO"`
	Level   level       `json:"level" yaml:"level" toml:"level" env:"LEVEL"`
	Inner   innerConfig `json:"inner" yaml:"inner" toml:"inner" env:"INNER"`
	Flat    innerConfig `json:"flat" yaml:"flat" toml:"flat"`
	Pointer *innerConfig
	Ignored string
	private string `env:"PRIVATE"`
}

type level string

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileFeeders(t *testing.T) {
	tests := []struct {
		name   string
		feeder Feeder
	}{
		{"yaml", NewYamlFeeder(write(t, "c.yaml", "name: shell\ndebug: true\ninner:\n  historySize: 50\n  throttle: 2s\n"))},
		{"toml", NewTomlFeeder(write(t, "c.toml", "name = \"shell\"\ndebug = true\n[inner]\nhistorySize = 50\nthrottle = \"2s\"\n"))},
		{"json", NewJSONFeeder(write(t, "c.json", `{"name": "shell", "debug": true, "inner": {"historySize": 50, "throttle": 2000000000}}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig{Ratio: 0.5}
			require.NoError(t, tt.feeder.Feed(&cfg))

			assert.Equal(t, "shell", cfg.Name)
			assert.True(t, cfg.Debug)
			assert.Equal(t, 50, cfg.Inner.HistorySize)
			assert.Equal(t, 2*time.Second, cfg.Inner.Throttle)
			assert.InDelta(t, 0.5, cfg.Ratio, 0, "fields missing from the file keep their value")
		})
	}
}

func TestFileFeederErrors(t *testing.T) {
	var cfg testConfig

	err := NewYamlFeeder(filepath.Join(t.TempDir(), "missing.yaml")).Feed(&cfg)
	assert.ErrorIs(t, err, ErrFileFeederUnavailable)

	err = NewJSONFeeder(write(t, "bad.json", `{"name": 1}`)).Feed(&cfg)
	assert.Error(t, err)

	err = NewTomlFeeder(write(t, "ok.toml", "")).Feed(cfg)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestAffixedEnvFeeder(t *testing.T) {
	t.Setenv("MFE_NAME_X", "from-env")
	t.Setenv("MFE_DEBUG_X", "true")
	t.Setenv("MFE_RATIO_X", "0.25")
	t.Setenv("MFE_LEVEL_X", "warn")
	t.Setenv("MFE_INNER_HISTORY_SIZE_X", "7")
	t.Setenv("MFE_INNER_THROTTLE_X", "1500ms")
	t.Setenv("MFE_HISTORY_SIZE_X", "9")
	t.Setenv("MFE_PRIVATE_X", "nope")

	cfg := testConfig{Name: "default", Pointer: &innerConfig{}}
	require.NoError(t, NewAffixedEnvFeeder("mfe", "x").Feed(&cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.True(t, cfg.Debug)
	assert.InDelta(t, 0.25, cfg.Ratio, 1e-9)
	assert.Equal(t, level("warn"), cfg.Level)
	assert.Equal(t, 7, cfg.Inner.HistorySize)
	assert.Equal(t, 1500*time.Millisecond, cfg.Inner.Throttle)
	assert.Equal(t, 9, cfg.Flat.HistorySize, "untagged nested structs share the prefix")
	assert.Equal(t, 9, cfg.Pointer.HistorySize)
	assert.Empty(t, cfg.private)
}

func TestAffixedEnvFeederPrefixOnly(t *testing.T) {
	t.Setenv("APP_NAME", "prefixed")
	var cfg testConfig
	require.NoError(t, NewAffixedEnvFeeder("APP", "").Feed(&cfg))
	assert.Equal(t, "prefixed", cfg.Name)
}

func TestAffixedEnvFeederErrors(t *testing.T) {
	var cfg testConfig

	assert.ErrorIs(t, NewAffixedEnvFeeder("", "").Feed(&cfg), ErrEmptyPrefixAndSuffix)
	assert.ErrorIs(t, NewAffixedEnvFeeder("A", "").Feed(cfg), ErrInvalidStructure)

	t.Setenv("BAD_INNER_THROTTLE", "soon")
	assert.ErrorIs(t, NewAffixedEnvFeeder("BAD", "").Feed(&cfg), ErrEnvCannotConvert)

	t.Setenv("WORSE_INNER_HISTORY_SIZE", "many")
	err := NewAffixedEnvFeeder("WORSE", "").Feed(&cfg)
	assert.ErrorIs(t, err, ErrEnvCannotConvert)
	assert.Contains(t, err.Error(), "WORSE_INNER_HISTORY_SIZE")
}

func TestDotEnvFeeder(t *testing.T) {
	path := write(t, ".env", `# host overrides
MFE_NAME="from file"
export MFE_DEBUG=true
MFE_INNER_THROTTLE='3s'

MFE_RATIO=0.75
`)
	t.Setenv("MFE_RATIO", "0.1")

	var cfg testConfig
	require.NoError(t, NewDotEnvFeeder(path, "MFE", "").Feed(&cfg))

	assert.Equal(t, "from file", cfg.Name)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 3*time.Second, cfg.Inner.Throttle)
	assert.InDelta(t, 0.1, cfg.Ratio, 1e-9, "process environment wins over the file")
}

func TestDotEnvFeederErrors(t *testing.T) {
	var cfg testConfig

	err := NewDotEnvFeeder(filepath.Join(t.TempDir(), ".env"), "MFE", "").Feed(&cfg)
	assert.ErrorIs(t, err, ErrFileFeederUnavailable)

	_, err = ParseDotEnv(write(t, ".env", "JUST_A_KEY\n"))
	assert.ErrorIs(t, err, ErrInvalidDotEnvLine)

	err = NewDotEnvFeeder(write(t, "empty.env", ""), "", "").Feed(&cfg)
	assert.ErrorIs(t, err, ErrEmptyPrefixAndSuffix)
}
