package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/speech/tts"
)

// ErrExportUnsupported is returned when the engine cannot render to files.
var ErrExportUnsupported = errors.New("engine cannot export audio")

// Export renders raw to audio files in the configured output directory and
// returns their paths. It does not affect playback state.
func (s *Session) Export(ctx context.Context, raw, name string) ([]string, error) {
	rec, ok := s.engine.(tts.Recorder)
	if !ok {
		return nil, ErrExportUnsupported
	}

	text, err := s.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("nothing to export")
	}

	settings := s.Settings(ctx)
	if err := os.MkdirAll(settings.OutputDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if name == "" {
		name = "speakeasy-" + time.Now().Format("20060102-150405")
	}

	u := &speech.Utterance{
		Text:    text,
		VoiceID: s.player.ResolveVoice(settings.SelectedVoiceIdentifier),
		Rate:    settings.SpeechRate,
	}
	paths, err := rec.Record(u, settings.OutputDirectory, name)
	if err != nil {
		return paths, fmt.Errorf("export failed: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"dir":   settings.OutputDirectory,
		"files": len(paths),
	}).Info("Exported audio")
	return paths, nil
}
