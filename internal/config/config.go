// Package config loads the mod's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the persister implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Default file names per backend.
const (
	DefaultStateFile  = "State.json"
	DefaultSQLiteFile = "State.db"
)

// Config is the mod configuration.
type Config struct {
	// DataDir holds the state file.
	DataDir string `yaml:"data_dir"`

	// StateFile overrides the file name inside DataDir. Empty uses the
	// backend's default name.
	StateFile string `yaml:"state_file,omitempty"`

	// Backend is "file" (State.json) or "sqlite".
	Backend Backend `yaml:"backend,omitempty"`

	// SaveDelay batches saves: writes within the window are coalesced into
	// one. Zero saves synchronously on every write.
	SaveDelay time.Duration `yaml:"save_delay,omitempty"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:  ".",
		Backend:  BackendFile,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over Default. A missing or empty file
// yields the defaults. Unknown fields are rejected to catch typos.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Backend)
	}
	if c.SaveDelay < 0 {
		return fmt.Errorf("save_delay must not be negative, got %s", c.SaveDelay)
	}
	if filepath.Base(c.StateFile) != c.StateFile && c.StateFile != "" {
		return fmt.Errorf("state_file must be a file name, got %q", c.StateFile)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// StatePath returns the full path of the backing file.
func (c Config) StatePath() string {
	name := c.StateFile
	if name == "" {
		name = DefaultStateFile
		if c.Backend == BackendSQLite {
			name = DefaultSQLiteFile
		}
	}
	return filepath.Join(c.DataDir, name)
}

// SlogLevel returns LogLevel as a slog level. Invalid levels map to Info;
// Validate reports them.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
