// Package tts holds the speech synthesizers the playback state machine drives.
package tts

import (
	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

type Config struct {
	Type     string
	Voice    string
	CacheDir string
}

// Events receives synthesizer callbacks. Every callback carries the ID of the
// utterance it belongs to so late events from a cancelled utterance can be
// told apart from the current one. Callbacks may arrive on any goroutine.
type Events interface {
	WillSpeakRange(id uint64, r speech.Range)
	DidFinish(id uint64)
	DidCancel(id uint64)
	DidPause(id uint64)
	DidContinue(id uint64)
	// DidFail reports that the engine gave up on an utterance it had accepted.
	DidFail(id uint64, err error)
}

// Synthesizer is the narrow contract of an external speech engine.
// Speak starts synthesis and returns without waiting for it to finish.
type Synthesizer interface {
	Speak(u *speech.Utterance, events Events) error
	Pause() error
	Resume() error
	Stop() error
	Voices() ([]voice.Voice, error)
	// RateRange is the inclusive normalized rate range the engine accepts.
	RateRange() (min, max float64)
}

// Recorder is implemented by synthesizers that can render to a file instead
// of the speakers. It returns the written paths.
type Recorder interface {
	Record(u *speech.Utterance, dir, name string) ([]string, error)
}

// CacheableEngine extends Synthesizer with cache management capabilities
type CacheableEngine interface {
	Synthesizer
	CacheStats() (CacheStats, error)
	ClearCache() error
}

// CacheStats summarizes an engine's on-disk audio cache.
type CacheStats struct {
	Directory string
	Files     int64
	Bytes     int64
}

// NopEvents discards every callback.
type NopEvents struct{}

func (NopEvents) WillSpeakRange(uint64, speech.Range) {}
func (NopEvents) DidFinish(uint64)                    {}
func (NopEvents) DidCancel(uint64)                    {}
func (NopEvents) DidPause(uint64)                     {}
func (NopEvents) DidContinue(uint64)                  {}
func (NopEvents) DidFail(uint64, error)               {}
