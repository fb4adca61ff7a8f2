// Package config handles loading and managing qdmboxsearch configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values read as "200ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfig controls how archives are scanned.
type LoadConfig struct {
	MaxHeaderBytes   int64    `toml:"max_header_bytes"`  // cap on one message's header block
	ProgressInterval Duration `toml:"progress_interval"` // progress event cadence
	StrictSeparators bool     `toml:"strict_separators"` // require a date on "From " separator lines
	KeepFromEscapes  bool     `toml:"keep_from_escapes"` // keep mboxrd >From quoting as stored
}

// SearchConfig holds search defaults; command flags override per run.
type SearchConfig struct {
	CaseSensitive bool   `toml:"case_sensitive"`
	Field         string `toml:"field"` // all | subject | body
	BodyWorkers   int    `toml:"body_workers"`
}

// UIConfig holds terminal browser settings.
type UIConfig struct {
	PageSize     int `toml:"page_size"`     // rows per page in the results list
	PreviewLines int `toml:"preview_lines"` // max body lines rendered in the detail view
}

type Config struct {
	Load   LoadConfig   `toml:"load"`
	Search SearchConfig `toml:"search"`
	UI     UIConfig     `toml:"ui"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default qdmboxsearch home directory.
// Respects the QDMBOXSEARCH_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("QDMBOXSEARCH_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qdmboxsearch"
	}
	return filepath.Join(home, ".qdmboxsearch")
}

// Load reads the configuration from the specified file. An empty path
// means <home>/config.toml; an empty home falls back to DefaultHome.
// The file itself is optional: every value has a working default.
func Load(path, home string) (*Config, error) {
	if home == "" {
		home = DefaultHome()
	}
	home = expandPath(home)

	if path == "" {
		path = filepath.Join(home, "config.toml")
	} else {
		path = expandPath(path)
	}

	cfg := &Config{
		HomeDir: home,
		// Defaults
		Load: LoadConfig{
			MaxHeaderBytes:   1 << 20,
			ProgressInterval: Duration{200 * time.Millisecond},
		},
		Search: SearchConfig{
			Field:       "all",
			BodyWorkers: 4,
		},
		UI: UIConfig{
			PageSize:     20,
			PreviewLines: 400,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// ConfigFilePath returns the path of this home's config.toml.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
