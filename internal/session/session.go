// Package session ties input classification, page fetching and playback
// together and keeps the state a UI binds to.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"speakeasy/internal/content"
	"speakeasy/internal/dispatch"
	domain "speakeasy/internal/domain/settings"
	"speakeasy/internal/domain/speech"
	"speakeasy/internal/playback"
	"speakeasy/internal/speech/tts"
)

// ErrSuperseded is returned by Speak when a later Speak or Stop replaced
// the request while its page was being fetched.
var ErrSuperseded = errors.New("request superseded")

// Fetcher retrieves the speakable text behind a normalized URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*content.Page, error)
}

// Store persists settings.
type Store interface {
	Load() domain.Settings
	Save(domain.Settings) error
}

// Status is a snapshot of everything a UI shows.
type Status struct {
	State      speech.PlaybackState
	Text       string
	Error      string
	Fraction   float64
	Range      speech.Range
	Processing bool
}

type Config struct {
	Queue   *dispatch.Queue
	Engine  tts.Synthesizer
	Fetcher Fetcher
	Store   Store
	Logger  *logrus.Entry
}

// Session is the orchestrator. Its fields are owned by the queue goroutine.
type Session struct {
	queue   *dispatch.Queue
	engine  tts.Synthesizer
	player  *playback.Player
	fetcher Fetcher
	store   Store
	log     *logrus.Entry

	settings   domain.Settings
	state      speech.PlaybackState
	text       string
	lastErr    string
	progress   speech.ProgressEvent
	processing bool
	request    uint64
	cancel     context.CancelFunc
	onChange   func(Status)
}

func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logrus.WithField("component", "session")
	}

	s := &Session{
		queue:   cfg.Queue,
		engine:  cfg.Engine,
		fetcher: cfg.Fetcher,
		store:   cfg.Store,
		log:     log,
	}
	if cfg.Store != nil {
		s.settings = cfg.Store.Load()
	} else {
		s.settings = domain.Default("")
	}

	s.player = playback.NewPlayer(cfg.Queue, cfg.Engine, playback.Hooks{
		OnStateChange: s.stateChanged,
		OnProgress:    s.progressed,
		OnComplete:    s.completed,
		OnFailure:     s.failed,
	}, logrus.WithField("component", "speech"))
	return s
}

// OnChange registers fn to run on the queue after every observable change.
func (s *Session) OnChange(ctx context.Context, fn func(Status)) error {
	return s.queue.Do(ctx, func(context.Context) { s.onChange = fn })
}

// Speak reads raw aloud. URL input is fetched first; anything else is
// spoken verbatim. Classification, fetch and playback failures are recorded
// as the last error and also returned.
func (s *Session) Speak(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		// nothing to read, but the previous error is still dismissed
		return s.queue.Do(ctx, func(context.Context) {
			if s.lastErr != "" {
				s.lastErr = ""
				s.changed()
			}
		})
	}

	var (
		request  uint64
		settings domain.Settings
		fetchCtx context.Context
	)
	if err := s.queue.Do(ctx, func(context.Context) {
		s.abortPending()
		s.request++
		request = s.request
		settings = s.settings
		s.lastErr = ""
		s.processing = true
		fetchCtx, s.cancel = context.WithCancel(ctx)
		s.changed()
	}); err != nil {
		return err
	}

	// Fetching and voice lookup run off the queue so stop and status calls
	// stay responsive.
	text, err := s.Resolve(fetchCtx, raw)
	var voiceID string
	if err == nil {
		voiceID = s.player.ResolveVoice(settings.SelectedVoiceIdentifier)
	}

	var result error
	if qerr := s.queue.Do(ctx, func(qctx context.Context) {
		if request != s.request {
			result = ErrSuperseded
			return
		}
		s.abortPending()
		s.processing = false

		if err != nil {
			result = s.record(err)
			return
		}

		s.text = text
		s.progress = speech.ProgressEvent{}
		if err := s.player.SpeakResolved(qctx, text, voiceID, settings.SpeechRate); err != nil {
			s.text = ""
			result = s.record(err)
			return
		}
		s.changed()
	}); qerr != nil {
		return qerr
	}
	return result
}

// Resolve turns raw input into the text to speak without touching state.
func (s *Session) Resolve(ctx context.Context, raw string) (string, error) {
	kind, normalized, err := content.Classify(raw)
	if err != nil {
		return "", err
	}
	if kind == content.KindText {
		return raw, nil
	}
	if s.fetcher == nil {
		return "", fmt.Errorf("no fetcher configured for %s", normalized)
	}

	page, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(page.Text) == "" {
		return "", content.ErrEmptyExtraction
	}

	s.log.WithFields(logrus.Fields{
		"url":        normalized,
		"paragraphs": len(page.Paragraphs),
		"cached":     page.FromCache,
	}).Info("Resolved URL input")
	return page.Text, nil
}

// record stores err as the last error. Runs on the queue.
func (s *Session) record(err error) error {
	s.lastErr = Message(err)
	s.log.WithError(err).Warn("Speak failed")
	s.changed()
	return err
}

// abortPending cancels an in-flight fetch. Runs on the queue.
func (s *Session) abortPending() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Stop cancels playback and any pending fetch, and clears the spoken text.
func (s *Session) Stop(ctx context.Context) error {
	return s.queue.Do(ctx, func(qctx context.Context) {
		s.request++
		s.abortPending()
		s.processing = false
		if err := s.player.Stop(qctx); err != nil {
			s.log.WithError(err).Warn("Stop failed")
		}
		s.text = ""
		s.progress = speech.ProgressEvent{}
		s.changed()
	})
}

func (s *Session) Pause(ctx context.Context) error {
	return s.control(ctx, s.player.Pause)
}

func (s *Session) Resume(ctx context.Context) error {
	return s.control(ctx, s.player.Resume)
}

func (s *Session) control(ctx context.Context, fn func(context.Context) error) error {
	var result error
	if err := s.queue.Do(ctx, func(qctx context.Context) {
		if err := fn(qctx); err != nil {
			result = s.record(err)
		}
	}); err != nil {
		return err
	}
	return result
}

// TogglePause pauses while speaking and resumes while paused.
func (s *Session) TogglePause(ctx context.Context) error {
	var result error
	if err := s.queue.Do(ctx, func(qctx context.Context) {
		var err error
		switch s.state {
		case speech.Speaking:
			err = s.player.Pause(qctx)
		case speech.Paused:
			err = s.player.Resume(qctx)
		}
		if err != nil {
			result = s.record(err)
		}
	}); err != nil {
		return err
	}
	return result
}

// Settings returns the settings in effect.
func (s *Session) Settings(ctx context.Context) domain.Settings {
	var out domain.Settings
	_ = s.queue.Do(ctx, func(context.Context) { out = s.settings })
	return out
}

// UpdateSettings validates, persists and applies next. The new voice and
// rate take effect on the next Speak.
func (s *Session) UpdateSettings(ctx context.Context, next domain.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	var result error
	if err := s.queue.Do(ctx, func(context.Context) {
		if s.store != nil {
			if result = s.store.Save(next); result != nil {
				return
			}
		}
		s.settings = next
	}); err != nil {
		return err
	}
	return result
}

func (s *Session) Status(ctx context.Context) Status {
	var st Status
	_ = s.queue.Do(ctx, func(context.Context) { st = s.snapshot() })
	return st
}

func (s *Session) State(ctx context.Context) speech.PlaybackState {
	return s.Status(ctx).State
}

// Text is the text being spoken, empty when idle.
func (s *Session) Text(ctx context.Context) string {
	return s.Status(ctx).Text
}

// LastError is the user-visible message of the last failure, or "".
func (s *Session) LastError(ctx context.Context) string {
	return s.Status(ctx).Error
}

func (s *Session) Progress(ctx context.Context) float64 {
	return s.Status(ctx).Fraction
}

func (s *Session) ActiveRange(ctx context.Context) speech.Range {
	return s.Status(ctx).Range
}

func (s *Session) snapshot() Status {
	return Status{
		State:      s.state,
		Text:       s.text,
		Error:      s.lastErr,
		Fraction:   s.progress.Fraction,
		Range:      s.progress.ActiveRange,
		Processing: s.processing,
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

// Player hooks; they run on the queue.

func (s *Session) stateChanged(state speech.PlaybackState) {
	s.state = state
	if state == speech.Idle {
		s.progress = speech.ProgressEvent{}
	}
	s.changed()
}

func (s *Session) progressed(ev speech.ProgressEvent) {
	s.progress = ev
	s.changed()
}

func (s *Session) completed(u speech.Utterance) {
	s.log.WithField("utterance", u.ID).Debug("Utterance complete")
	s.text = ""
	s.changed()
}

func (s *Session) failed(err error) {
	s.text = ""
	s.lastErr = Message(err)
	s.log.WithError(err).Warn("Playback failed")
	s.changed()
}
