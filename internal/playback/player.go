// Package playback implements the speech state machine on top of a
// tts.Synthesizer. Every mutation runs on a dispatch.Queue; synthesizer
// callbacks are posted back onto it before they touch state.
package playback

import (
	"context"

	"github.com/sirupsen/logrus"

	"speakeasy/internal/dispatch"
	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
	"speakeasy/internal/speech/tts"
)

// Hooks are invoked on the queue goroutine. Any of them may be nil.
type Hooks struct {
	OnStateChange func(speech.PlaybackState)
	OnProgress    func(speech.ProgressEvent)
	// OnComplete fires once when the engine finishes an utterance. It does
	// not fire for cancelled utterances.
	OnComplete func(speech.Utterance)
	// OnFailure fires when the engine abandons an utterance it had accepted.
	OnFailure func(error)
}

type Player struct {
	queue  *dispatch.Queue
	engine tts.Synthesizer
	hooks  Hooks
	log    *logrus.Entry

	sm        *machine
	utterance *speech.Utterance
	progress  speech.ProgressEvent
	lastID    uint64

	// acknowledgements still owed by the engine for Pause and Resume calls
	pendingPauses  int
	pendingResumes int
}

func NewPlayer(queue *dispatch.Queue, engine tts.Synthesizer, hooks Hooks, log *logrus.Entry) *Player {
	if log == nil {
		log = logrus.WithField("component", "speech")
	}
	p := &Player{
		queue:  queue,
		engine: engine,
		hooks:  hooks,
		log:    log,
		sm:     newMachine(),
	}

	p.sm.OnEnter(speech.Idle, func() {
		p.utterance = nil
		p.progress = speech.ProgressEvent{}
		p.pendingPauses, p.pendingResumes = 0, 0
		p.stateChanged(speech.Idle)
	})
	p.sm.OnEnter(speech.Speaking, func() { p.stateChanged(speech.Speaking) })
	p.sm.OnEnter(speech.Paused, func() { p.stateChanged(speech.Paused) })
	return p
}

// Speak cancels whatever is playing and starts text. Empty text is a no-op.
// An unknown voice falls back to the engine default and rate is clamped to
// the engine's range. The voice is looked up before the queue is entered, so
// callers already running on the queue should use SpeakResolved.
func (p *Player) Speak(ctx context.Context, text, voiceID string, rate float64) error {
	return p.SpeakResolved(ctx, text, p.ResolveVoice(voiceID), rate)
}

// SpeakResolved is Speak for a voice ID returned by ResolveVoice. It never
// consults the engine's catalog.
func (p *Player) SpeakResolved(ctx context.Context, text, voiceID string, rate float64) error {
	var err error
	if qerr := p.queue.Do(ctx, func(context.Context) {
		err = p.speak(text, voiceID, rate)
	}); qerr != nil {
		return qerr
	}
	return err
}

func (p *Player) speak(text, voiceID string, rate float64) error {
	if text == "" {
		return nil
	}
	if p.sm.Current() != speech.Idle {
		p.stop()
	}

	p.lastID++
	u := &speech.Utterance{
		ID:      p.lastID,
		Text:    text,
		VoiceID: voiceID,
		Rate:    p.clampRate(rate),
	}

	if err := p.engine.Speak(u, engineEvents{p}); err != nil {
		p.log.WithError(err).WithField("utterance", u.ID).Error("Engine rejected utterance")
		return &PlaybackError{Err: err}
	}

	p.utterance = u
	p.progress = speech.ProgressEvent{}
	p.sm.Transition(speech.Speaking)

	p.log.WithFields(logrus.Fields{
		"utterance": u.ID,
		"runes":     u.Length(),
		"voice":     u.VoiceID,
		"rate":      u.Rate,
	}).Info("Started speaking")
	return nil
}

// ResolveVoice maps id onto the engine's catalog, returning "" for the
// engine default. It may block on the engine and must not run on the queue.
func (p *Player) ResolveVoice(id string) string {
	if id == "" {
		return ""
	}
	v, ok := voice.ResolveIn(p.engine, id)
	if !ok {
		p.log.WithField("voice", id).Debug("Unknown voice, using engine default")
		return ""
	}
	return v.ID
}

func (p *Player) clampRate(rate float64) float64 {
	lo, hi := p.engine.RateRange()
	if rate < lo {
		return lo
	}
	if rate > hi {
		return hi
	}
	return rate
}

// Pause is a no-op unless speaking.
func (p *Player) Pause(ctx context.Context) error {
	var err error
	if qerr := p.queue.Do(ctx, func(context.Context) {
		if p.sm.Current() != speech.Speaking {
			return
		}
		if err = p.engine.Pause(); err != nil {
			err = &PlaybackError{Err: err}
			return
		}
		p.pendingPauses++
		p.sm.Transition(speech.Paused)
	}); qerr != nil {
		return qerr
	}
	return err
}

// Resume is a no-op unless paused.
func (p *Player) Resume(ctx context.Context) error {
	var err error
	if qerr := p.queue.Do(ctx, func(context.Context) {
		if p.sm.Current() != speech.Paused {
			return
		}
		if err = p.engine.Resume(); err != nil {
			err = &PlaybackError{Err: err}
			return
		}
		p.pendingResumes++
		p.sm.Transition(speech.Speaking)
	}); qerr != nil {
		return qerr
	}
	return err
}

// Stop cancels the current utterance. Calling it while idle does nothing.
func (p *Player) Stop(ctx context.Context) error {
	return p.queue.Do(ctx, func(context.Context) { p.stop() })
}

func (p *Player) stop() {
	if p.sm.Current() == speech.Idle {
		return
	}
	if err := p.engine.Stop(); err != nil {
		p.log.WithError(err).Warn("Engine failed to stop")
	}
	p.log.WithField("utterance", p.utterance.ID).Info("Stopped speaking")
	p.sm.Transition(speech.Idle)
}

func (p *Player) State(ctx context.Context) speech.PlaybackState {
	state := speech.Idle
	_ = p.queue.Do(ctx, func(context.Context) { state = p.sm.Current() })
	return state
}

// Utterance returns a copy of the utterance in flight.
func (p *Player) Utterance(ctx context.Context) (speech.Utterance, bool) {
	var (
		u  speech.Utterance
		ok bool
	)
	_ = p.queue.Do(ctx, func(context.Context) {
		if p.utterance != nil {
			u, ok = *p.utterance, true
		}
	})
	return u, ok
}

func (p *Player) Progress(ctx context.Context) speech.ProgressEvent {
	var ev speech.ProgressEvent
	_ = p.queue.Do(ctx, func(context.Context) { ev = p.progress })
	return ev
}

func (p *Player) stateChanged(state speech.PlaybackState) {
	p.log.WithField("state", state).Debug("State changed")
	if p.hooks.OnStateChange != nil {
		p.hooks.OnStateChange(state)
	}
}

// deliver runs fn on the queue if id still names the current utterance.
func (p *Player) deliver(id uint64, event string, fn func(u *speech.Utterance)) {
	p.queue.Post(func(context.Context) {
		if p.utterance == nil || p.utterance.ID != id {
			p.log.WithFields(logrus.Fields{"utterance": id, "event": event}).Debug("Ignoring stale engine event")
			return
		}
		fn(p.utterance)
	})
}

// engineEvents adapts synthesizer callbacks to queue jobs.
type engineEvents struct {
	p *Player
}

func (e engineEvents) WillSpeakRange(id uint64, r speech.Range) {
	p := e.p
	p.deliver(id, "range", func(u *speech.Utterance) {
		p.progress = speech.NewProgressEvent(r, u.Length())
		if p.hooks.OnProgress != nil {
			p.hooks.OnProgress(p.progress)
		}
	})
}

func (e engineEvents) DidFinish(id uint64) {
	p := e.p
	p.deliver(id, "finish", func(u *speech.Utterance) {
		done := *u
		p.sm.Transition(speech.Idle)
		p.log.WithField("utterance", id).Info("Finished speaking")
		if p.hooks.OnComplete != nil {
			p.hooks.OnComplete(done)
		}
	})
}

func (e engineEvents) DidCancel(id uint64) {
	p := e.p
	p.deliver(id, "cancel", func(*speech.Utterance) {
		p.sm.Transition(speech.Idle)
	})
}

func (e engineEvents) DidPause(id uint64) {
	p := e.p
	p.deliver(id, "pause", func(*speech.Utterance) {
		// the acknowledgement of our own Pause; the state already moved
		if p.pendingPauses > 0 {
			p.pendingPauses--
			return
		}
		if p.sm.Current() == speech.Speaking {
			p.sm.Transition(speech.Paused)
		}
	})
}

func (e engineEvents) DidContinue(id uint64) {
	p := e.p
	p.deliver(id, "continue", func(*speech.Utterance) {
		if p.pendingResumes > 0 {
			p.pendingResumes--
			return
		}
		if p.sm.Current() == speech.Paused {
			p.sm.Transition(speech.Speaking)
		}
	})
}

func (e engineEvents) DidFail(id uint64, err error) {
	p := e.p
	p.deliver(id, "fail", func(*speech.Utterance) {
		p.sm.Transition(speech.Idle)
		p.log.WithError(err).WithField("utterance", id).Error("Engine abandoned utterance")
		if p.hooks.OnFailure != nil {
			p.hooks.OnFailure(&PlaybackError{Err: err})
		}
	})
}
