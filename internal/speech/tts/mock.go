package tts

import (
	"errors"
	"path/filepath"
	"sync"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

// ErrMockRejected is returned by MockEngine.Speak when Reject is set.
var ErrMockRejected = errors.New("mock engine rejected utterance")

// MockEngine is an in-memory Synthesizer. It never produces audio; tests
// drive its callbacks with the Fire* methods. Stop, Pause and Resume report
// their events before returning.
type MockEngine struct {
	mu sync.Mutex

	Reject  bool
	Min     float64
	Max     float64
	Catalog []voice.Voice

	spoken  []speech.Utterance
	events  Events
	current *speech.Utterance
	calls   []string
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		Min: 0,
		Max: 1,
		Catalog: []voice.Voice{
			{ID: "mock-voice", Name: "Mock", LanguageCode: "en-US", Quality: voice.QualityDefault},
		},
	}
}

func (m *MockEngine) Speak(u *speech.Utterance, events Events) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "speak")
	if m.Reject {
		return ErrMockRejected
	}
	if events == nil {
		events = NopEvents{}
	}
	m.cancelLocked()
	cp := *u
	m.spoken = append(m.spoken, cp)
	m.current = &cp
	m.events = events
	return nil
}

// Pause and Resume acknowledge with DidPause and DidContinue, as the real
// engines do.
func (m *MockEngine) Pause() error {
	m.record("pause")
	m.FirePause()
	return nil
}

func (m *MockEngine) Resume() error {
	m.record("resume")
	m.FireContinue()
	return nil
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "stop")
	m.cancelLocked()
	return nil
}

func (m *MockEngine) cancelLocked() {
	if m.current == nil {
		return
	}
	id, events := m.current.ID, m.events
	m.current = nil
	events.DidCancel(id)
}

func (m *MockEngine) Voices() ([]voice.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]voice.Voice(nil), m.Catalog...), nil
}

func (m *MockEngine) RateRange() (float64, float64) {
	return m.Min, m.Max
}

// Record pretends to write one file per utterance.
func (m *MockEngine) Record(u *speech.Utterance, dir, name string) ([]string, error) {
	m.record("record")
	if m.Reject {
		return nil, ErrMockRejected
	}
	return []string{filepath.Join(dir, name+".mock")}, nil
}

func (m *MockEngine) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls lists the control methods invoked so far, in order.
func (m *MockEngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Spoken returns copies of every utterance accepted by Speak.
func (m *MockEngine) Spoken() []speech.Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]speech.Utterance(nil), m.spoken...)
}

// Current returns the utterance in flight, if any.
func (m *MockEngine) Current() (speech.Utterance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return speech.Utterance{}, false
	}
	return *m.current, true
}

func (m *MockEngine) FireRange(r speech.Range) {
	if id, ev, ok := m.target(); ok {
		ev.WillSpeakRange(id, r)
	}
}

func (m *MockEngine) FirePause() {
	if id, ev, ok := m.target(); ok {
		ev.DidPause(id)
	}
}

func (m *MockEngine) FireContinue() {
	if id, ev, ok := m.target(); ok {
		ev.DidContinue(id)
	}
}

// FireFinish completes the current utterance.
func (m *MockEngine) FireFinish() {
	if id, ev, ok := m.finish(); ok {
		ev.DidFinish(id)
	}
}

// FireFail makes the engine give up on the current utterance.
func (m *MockEngine) FireFail(err error) {
	if id, ev, ok := m.finish(); ok {
		ev.DidFail(id, err)
	}
}

// FireStale delivers a finish event for an utterance that is no longer current.
func (m *MockEngine) FireStale(id uint64) {
	m.mu.Lock()
	ev := m.events
	m.mu.Unlock()
	if ev != nil {
		ev.DidFinish(id)
	}
}

func (m *MockEngine) target() (uint64, Events, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, nil, false
	}
	return m.current.ID, m.events, true
}

func (m *MockEngine) finish() (uint64, Events, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, nil, false
	}
	id := m.current.ID
	m.current = nil
	return id, m.events, true
}
