package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperText struct {
	Value string
}

func (u *upperText) UnmarshalText(text []byte) error {
	u.Value = strings.ToUpper(string(text))
	return nil
}

type sample struct {
	Name    string        `yaml:"name" env:"SAMPLE_NAME"`
	Enabled bool          `yaml:"enabled" env:"SAMPLE_ENABLED"`
	Count   int           `yaml:"count" env:"SAMPLE_COUNT"`
	Every   time.Duration `yaml:"every" env:"SAMPLE_EVERY"`
	Emails  []string      `yaml:"emails" env:"SAMPLE_EMAILS"`
	Custom  upperText     `yaml:"-" env:"SAMPLE_CUSTOM"`
	Nested  struct {
		Port string `yaml:"port"`
	} `yaml:"nested"`
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(defaultConfigPathEnv, "")
	t.Setenv("SAMPLE_NAME", "report")
	t.Setenv("SAMPLE_ENABLED", "true")
	t.Setenv("SAMPLE_COUNT", "3")
	t.Setenv("SAMPLE_EVERY", "55s")
	t.Setenv("SAMPLE_EMAILS", "['a@example.com', \"b@example.com\"]")
	t.Setenv("SAMPLE_CUSTOM", "abc")
	t.Setenv("NESTED_PORT", "2525")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "report", cfg.Name)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, 55*time.Second, cfg.Every)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Emails)
	assert.Equal(t, "ABC", cfg.Custom.Value)
	assert.Equal(t, "2525", cfg.Nested.Port)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "name: from-file\ncount: 7\nemails:\n  - one@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(defaultConfigPathEnv, path)
	t.Setenv("SAMPLE_COUNT", "9")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 9, cfg.Count)
	assert.Equal(t, []string{"one@example.com"}, cfg.Emails)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv(defaultConfigPathEnv, "")
	t.Setenv("SAMPLE_COUNT", "many")

	var cfg sample
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAMPLE_COUNT")
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	require.Error(t, LoadConfig(nil))
	require.Error(t, LoadConfig(sample{}))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"101", "102"}, SplitList("[101, 102]"))
	assert.Equal(t, []string{"a", "b"}, SplitList("a,b"))
	assert.Equal(t, []string{"x"}, SplitList(" ['x', ] "))
	assert.Empty(t, SplitList("[]"))
}
