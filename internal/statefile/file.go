package statefile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// FileName is the backing file's name inside the mod data directory.
const FileName = "State.json"

// File is a state.Persister backed by one JSON file.
type File struct {
	path   string
	logger *slog.Logger
}

// Option customises a File.
type Option func(*File)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a persister for the file at path. Nothing is touched on disk
// until Load or Save.
func New(path string, opts ...Option) *File {
	f := &File{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InDir creates a persister for State.json inside dir.
func InDir(dir string, opts ...Option) *File {
	return New(filepath.Join(dir, FileName), opts...)
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load reads all records. A missing file is created empty; an empty file
// yields no records.
func (f *File) Load() (map[string]state.Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := f.create(); err != nil {
			return nil, state.NewIOError("create", f.path, err)
		}
		f.logger.Info("created empty state file", "path", f.path)
		return make(map[string]state.Record), nil
	}
	if err != nil {
		return nil, state.NewIOError("read", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]state.Record), nil
	}

	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return records, nil
}

// Save replaces the file with records.
func (f *File) Save(records map[string]state.Record) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, data); err != nil {
		return state.NewIOError("write", f.path, err)
	}
	return nil
}

func (f *File) create() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return file.Close()
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "State-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
