package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	domain "speakeasy/internal/domain/settings"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/tmp/out")

	got := store.Load()
	want := domain.Default("/tmp/out")
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptOrInvalidReturnsDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"wrong types", `{"speechRate": "fast"}`},
		{"rate out of range", `{"selectedVoiceIdentifier":"x","speechRate":4,"shortcuts":{"readTextShortcut":"cmd+p"}}`},
		{"bad shortcut", `{"selectedVoiceIdentifier":"x","speechRate":0.5,"shortcuts":{"readTextShortcut":"p"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, settingsFile), []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			store := NewFileStore(dir, "/out")
			if got := store.Load(); got != store.Default() {
				t.Errorf("Load() = %+v, want defaults", got)
			}
		})
	}
}

func TestSaveLoadReset(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nested"), "/out")

	s := store.Default()
	s.SelectedVoiceIdentifier = "Daniel"
	s.SpeechRate = 0.8
	s.OutputDirectory = "/music"
	s.Shortcuts.ReadTextShortcut = "ctrl+alt+r"
	s.ShowOnlyHighQualityVoices = true

	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(); got != s {
		t.Errorf("Load() = %+v, want %+v", got, s)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := store.Load(); got != store.Default() {
		t.Errorf("Load() after reset = %+v, want defaults", got)
	}
	if err := store.Reset(); err != nil {
		t.Errorf("second Reset() error = %v", err)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/out")
	s := store.Default()
	s.SpeechRate = 1.5

	if err := store.Save(s); err == nil {
		t.Fatal("Save() accepted rate 1.5")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("settings file written despite invalid settings")
	}
}

func TestPersistedShape(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/out")
	if err := store.Save(store.Default()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"selectedVoiceIdentifier"`, `"speechRate"`, `"outputDirectory"`, `"shortcuts"`, `"readTextShortcut"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("persisted settings missing %s:\n%s", key, data)
		}
	}
}
