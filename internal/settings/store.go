// Package settings persists user settings as a JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	domain "speakeasy/internal/domain/settings"
)

const settingsFile = "settings.json"

// FileStore keeps Settings in a single JSON file.
type FileStore struct {
	path       string
	defaultDir string
	log        *logrus.Entry
}

// NewFileStore stores settings under dir. outputDirectory seeds the
// default settings.
func NewFileStore(dir, outputDirectory string) *FileStore {
	return &FileStore{
		path:       filepath.Join(dir, settingsFile),
		defaultDir: outputDirectory,
		log:        logrus.WithField("component", "settings"),
	}
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Default() domain.Settings {
	return domain.Default(fs.defaultDir)
}

// Load returns the persisted settings, or the defaults when the file is
// missing, unreadable or invalid. It never fails.
func (fs *FileStore) Load() domain.Settings {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fs.log.WithError(err).Warn("Failed to read settings, using defaults")
		}
		return fs.Default()
	}

	var s domain.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		fs.log.WithError(err).Warn("Corrupt settings file, using defaults")
		return fs.Default()
	}
	if err := s.Validate(); err != nil {
		fs.log.WithError(err).Warn("Invalid settings, using defaults")
		return fs.Default()
	}
	if s.OutputDirectory == "" {
		s.OutputDirectory = fs.defaultDir
	}
	return s
}

// Save validates and writes s.
func (fs *FileStore) Save(s domain.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	fs.log.WithField("path", fs.path).Debug("Settings saved")
	return nil
}

// Reset removes the persisted file so the next Load returns defaults.
func (fs *FileStore) Reset() error {
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	return nil
}
