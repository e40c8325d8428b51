package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/config"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/mod"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/statedb"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/statefile"
)

// resolveConfig applies the global flags over the config file.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if opts.StatePath != "" {
		cfg.DataDir = filepath.Dir(opts.StatePath)
		cfg.StateFile = filepath.Base(opts.StatePath)
		if opts.Backend == "" {
			cfg.Backend = backendForPath(opts.StatePath)
		}
	}
	if opts.Backend != "" {
		cfg.Backend = config.Backend(opts.Backend)
	}
	// Every command saves explicitly.
	cfg.SaveDelay = 0

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// backendForPath picks sqlite for .db/.sqlite files and the JSON file
// otherwise.
func backendForPath(path string) config.Backend {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return config.BackendSQLite
	}
	return config.BackendFile
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openMod loads the state the flags point at. Malformed data is an error
// so a command never overwrites a file it could not read.
func openMod(opts *RootOptions, f *OutputFormatter) (*mod.Mod, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to resolve config", err)
	}
	f.VerboseLog("Using %s backend at %s", cfg.Backend, cfg.StatePath())

	m, err := mod.New(cfg, mod.WithLogger(newLogger(opts, f.errWriter())), mod.WithStrictLoad())
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to open state", err)
	}
	if err := m.Initialize(); err != nil {
		_ = m.Shutdown()
		return nil, f.Fail(ExitCommandError, "failed to load state", err)
	}
	return m, nil
}

// openPersister opens path as a standalone backend. The returned close func
// is never nil.
func openPersister(path string, backend config.Backend, logger *slog.Logger) (state.Persister, func() error, error) {
	if backend == config.BackendSQLite {
		db, err := statedb.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return statefile.New(path, statefile.WithLogger(logger)), func() error { return nil }, nil
}
