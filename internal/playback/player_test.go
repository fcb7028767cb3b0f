package playback

import (
	"context"
	"errors"
	"testing"

	"speakeasy/internal/dispatch"
	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
	"speakeasy/internal/speech/tts"
)

type recorder struct {
	states    []speech.PlaybackState
	progress  []speech.ProgressEvent
	completed []speech.Utterance
	failures  []error
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStateChange: func(s speech.PlaybackState) { r.states = append(r.states, s) },
		OnProgress:    func(ev speech.ProgressEvent) { r.progress = append(r.progress, ev) },
		OnComplete:    func(u speech.Utterance) { r.completed = append(r.completed, u) },
		OnFailure:     func(err error) { r.failures = append(r.failures, err) },
	}
}

func newTestPlayer(t *testing.T) (*Player, *tts.MockEngine, *recorder) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	queue := dispatch.New(16)
	queue.Start(ctx)

	engine := tts.NewMockEngine()
	rec := &recorder{}
	return NewPlayer(queue, engine, rec.hooks(), nil), engine, rec
}

// settle waits until every job posted so far has run. Hook slices may only be
// read after calling it.
func settle(t *testing.T, p *Player) speech.PlaybackState {
	t.Helper()
	return p.State(context.Background())
}

func TestSpeakEmptyIsNoop(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "", "", 0.5); err != nil {
		t.Fatalf("Speak(\"\") error = %v", err)
	}
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if len(engine.Spoken()) != 0 {
		t.Errorf("engine received %d utterances, want 0", len(engine.Spoken()))
	}

	// also a no-op while speaking
	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Speak(ctx, "", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, p); got != speech.Speaking {
		t.Errorf("state = %v, want speaking", got)
	}
	if u, ok := p.Utterance(ctx); !ok || u.Text != "hello" {
		t.Errorf("utterance = %+v, %v; want hello", u, ok)
	}
}

func TestPauseResume(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("pause from idle: state = %v, want idle", got)
	}
	if err := p.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("resume from idle: state = %v, want idle", got)
	}
	if len(engine.Calls()) != 0 {
		t.Errorf("engine calls = %v, want none", engine.Calls())
	}

	if err := p.Speak(ctx, "one two three", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, p); got != speech.Paused {
		t.Errorf("state = %v, want paused", got)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if got := settle(t, p); got != speech.Speaking {
		t.Errorf("state = %v, want speaking", got)
	}

	want := []string{"speak", "pause", "resume"}
	if got := engine.Calls(); !equalStrings(got, want) {
		t.Errorf("engine calls = %v, want %v", got, want)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := p.Stop(ctx); err != nil {
			t.Fatalf("Stop #%d error = %v", i+1, err)
		}
		if got := settle(t, p); got != speech.Idle {
			t.Errorf("after stop #%d: state = %v, want idle", i+1, got)
		}
	}
	if _, ok := p.Utterance(ctx); ok {
		t.Error("utterance still set after stop")
	}

	stops := 0
	for _, c := range engine.Calls() {
		if c == "stop" {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("engine Stop called %d times, want 1", stops)
	}
	if len(rec.completed) != 0 {
		t.Errorf("completion fired %d times after stop, want 0", len(rec.completed))
	}
}

func TestFinishCompletesOnce(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "hello world", "", 0.5); err != nil {
		t.Fatal(err)
	}
	engine.FireFinish()
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}

	// A duplicate finish for the same utterance is stale.
	engine.FireStale(1)
	settle(t, p)

	if len(rec.completed) != 1 {
		t.Fatalf("completion fired %d times, want 1", len(rec.completed))
	}
	if rec.completed[0].Text != "hello world" {
		t.Errorf("completed text = %q", rec.completed[0].Text)
	}
	if _, ok := p.Utterance(ctx); ok {
		t.Error("utterance still set after finish")
	}
}

func TestFinishWhilePaused(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	engine.FireFinish()
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if len(rec.completed) != 1 {
		t.Errorf("completion fired %d times, want 1", len(rec.completed))
	}
}

func TestSpeakReplacesCurrentUtterance(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "first", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Speak(ctx, "second", "", 0.5); err != nil {
		t.Fatal(err)
	}

	// The mock reported DidCancel for "first"; it must not knock the new
	// utterance back to idle.
	if got := settle(t, p); got != speech.Speaking {
		t.Fatalf("state = %v, want speaking", got)
	}
	u, ok := p.Utterance(ctx)
	if !ok || u.Text != "second" {
		t.Fatalf("utterance = %+v, %v; want second", u, ok)
	}

	want := []string{"speak", "pause", "stop", "speak"}
	if got := engine.Calls(); !equalStrings(got, want) {
		t.Errorf("engine calls = %v, want %v", got, want)
	}

	engine.FireFinish()
	settle(t, p)
	if len(rec.completed) != 1 || rec.completed[0].Text != "second" {
		t.Errorf("completed = %+v, want only second", rec.completed)
	}
}

func TestCancelReturnsToIdleWithoutCompletion(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	// Engine-initiated cancel, e.g. another app took the audio device.
	_ = engine.Stop()
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if len(rec.completed) != 0 {
		t.Errorf("completion fired %d times, want 0", len(rec.completed))
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		r        speech.Range
		fraction float64
	}{
		{"start", "0123456789", speech.Range{Start: 0, End: 4}, 0},
		{"middle", "0123456789", speech.Range{Start: 5, End: 9}, 0.5},
		{"past end is clamped", "0123456789", speech.Range{Start: 20, End: 25}, 1},
		{"runes not bytes", "héllo wörld", speech.Range{Start: 6, End: 11}, 6.0 / 11.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, engine, rec := newTestPlayer(t)
			ctx := context.Background()

			if err := p.Speak(ctx, tt.text, "", 0.5); err != nil {
				t.Fatal(err)
			}
			engine.FireRange(tt.r)
			if got := settle(t, p); got != speech.Speaking {
				t.Errorf("progress changed state to %v", got)
			}

			ev := p.Progress(ctx)
			if ev.Fraction != tt.fraction {
				t.Errorf("fraction = %v, want %v", ev.Fraction, tt.fraction)
			}
			if ev.ActiveRange != tt.r {
				t.Errorf("range = %+v, want %+v", ev.ActiveRange, tt.r)
			}
			if len(rec.progress) != 1 {
				t.Errorf("progress hook fired %d times, want 1", len(rec.progress))
			}
		})
	}
}

func TestNativePauseSync(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	ctx := context.Background()

	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	engine.FirePause()
	if got := settle(t, p); got != speech.Paused {
		t.Errorf("after native pause: state = %v, want paused", got)
	}
	engine.FireContinue()
	if got := settle(t, p); got != speech.Speaking {
		t.Errorf("after native continue: state = %v, want speaking", got)
	}
}

// heldAcks is a mock engine whose Pause and Resume acknowledgements are
// delivered by the test, in any order.
type heldAcks struct {
	*tts.MockEngine
	events tts.Events
	id     uint64
}

func (e *heldAcks) Speak(u *speech.Utterance, events tts.Events) error {
	e.events, e.id = events, u.ID
	return e.MockEngine.Speak(u, events)
}

func (e *heldAcks) Pause() error  { return nil }
func (e *heldAcks) Resume() error { return nil }

func TestLateAcknowledgementsKeepCommandedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := dispatch.New(16)
	queue.Start(ctx)

	engine := &heldAcks{MockEngine: tts.NewMockEngine()}
	p := NewPlayer(queue, engine, Hooks{}, nil)

	if err := p.Speak(ctx, "hello world", "", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Resume(ctx); err != nil {
		t.Fatal(err)
	}

	// acknowledgements arrive after both commands, out of order
	engine.events.DidContinue(engine.id)
	engine.events.DidPause(engine.id)
	if got := settle(t, p); got != speech.Speaking {
		t.Errorf("after late acknowledgements: state = %v, want speaking", got)
	}

	// once acknowledged, a pause the engine starts itself still applies
	engine.events.DidPause(engine.id)
	if got := settle(t, p); got != speech.Paused {
		t.Errorf("after native pause: state = %v, want paused", got)
	}
}

func TestEngineRejection(t *testing.T) {
	p, engine, _ := newTestPlayer(t)
	ctx := context.Background()
	engine.Reject = true

	err := p.Speak(ctx, "hello", "", 0.5)
	var perr *PlaybackError
	if !errors.As(err, &perr) {
		t.Fatalf("Speak error = %v, want *PlaybackError", err)
	}
	if !errors.Is(err, tts.ErrMockRejected) {
		t.Errorf("error does not wrap engine cause: %v", err)
	}
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestEngineFailure(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()
	cause := errors.New("quota exceeded")

	if err := p.Speak(ctx, "hello", "", 0.5); err != nil {
		t.Fatal(err)
	}
	engine.FireFail(cause)
	if got := settle(t, p); got != speech.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if len(rec.failures) != 1 || !errors.Is(rec.failures[0], cause) {
		t.Errorf("failures = %v, want one wrapping %v", rec.failures, cause)
	}
	if len(rec.completed) != 0 {
		t.Error("failure must not signal completion")
	}
}

func TestVoiceAndRateResolution(t *testing.T) {
	tests := []struct {
		name      string
		voiceID   string
		rate      float64
		wantVoice string
		wantRate  float64
	}{
		{"exact voice", "Samantha", 0.5, "Samantha", 0.5},
		{"reverse-dns voice", "com.apple.voice.compact.en-US.Samantha", 0.5, "Samantha", 0.5},
		{"unknown voice falls back", "Nobody", 0.5, "", 0.5},
		{"empty voice", "", 0.5, "", 0.5},
		{"rate above range", "", 3, "", 1},
		{"rate below range", "", -1, "", 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, engine, _ := newTestPlayer(t)
			engine.Min = 0.2
			engine.Catalog = []voice.Voice{{ID: "Samantha", Name: "Samantha", LanguageCode: "en-US"}}

			if err := p.Speak(context.Background(), "hello", tt.voiceID, tt.rate); err != nil {
				t.Fatal(err)
			}
			u, ok := engine.Current()
			if !ok {
				t.Fatal("engine has no utterance")
			}
			if u.VoiceID != tt.wantVoice {
				t.Errorf("voice = %q, want %q", u.VoiceID, tt.wantVoice)
			}
			if u.Rate != tt.wantRate {
				t.Errorf("rate = %v, want %v", u.Rate, tt.wantRate)
			}
		})
	}
}

func TestStateHookSequence(t *testing.T) {
	p, engine, rec := newTestPlayer(t)
	ctx := context.Background()

	_ = p.Speak(ctx, "hello", "", 0.5)
	_ = p.Pause(ctx)
	_ = p.Resume(ctx)
	engine.FireFinish()
	settle(t, p)

	want := []speech.PlaybackState{speech.Speaking, speech.Paused, speech.Speaking, speech.Idle}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, rec.states[i], want[i])
		}
	}
}

func TestMachineRejectsInvalidTransitions(t *testing.T) {
	m := newMachine()
	if m.Transition(speech.Paused) {
		t.Error("idle -> paused should be rejected")
	}
	if !m.Transition(speech.Speaking) {
		t.Error("idle -> speaking should be allowed")
	}
	if m.Transition(speech.Speaking) {
		t.Error("speaking -> speaking should be rejected")
	}
	if m.Current() != speech.Speaking {
		t.Errorf("current = %v, want speaking", m.Current())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
