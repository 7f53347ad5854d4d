// Package config loads the optional sweepy.toml file at an analysis root.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// FileName is the configuration file looked up at the analysis root.
const FileName = "sweepy.toml"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the contents of sweepy.toml.
type Config struct {
	// Entry lists the default entrypoints, root-relative.
	Entry []string `toml:"entry"`

	// Ignore lists glob patterns excluded from the walk.
	Ignore []string `toml:"ignore"`

	Output Output `toml:"output"`
	Store  Store  `toml:"store"`
	Watch  Watch  `toml:"watch"`
}

type Output struct {
	Format string `toml:"format"`
}

type Store struct {
	// Enabled controls whether analyze persists reports. Defaults to true.
	Enabled bool `toml:"enabled"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Output: Output{Format: FormatText},
		Store:  Store{Enabled: true},
		Watch:  Watch{Debounce: 2 * time.Second},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown configuration key", "file", path, "key", key.String())
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatText
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = Default().Watch.Debounce
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromRoot loads root/sweepy.toml, or returns Default when it does not
// exist.
func LoadFromRoot(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the output format and compiles every ignore pattern.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatJSON, c.Output.Format)
	}

	for _, p := range c.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("ignore pattern %q: %w", p, err)
		}
	}
	return nil
}
