//go:build unix

package tts

import (
	"os/exec"
	"testing"
	"time"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

// eventLog records engine callbacks on a channel.
type eventLog struct {
	ch chan string
}

func newEventLog() *eventLog { return &eventLog{ch: make(chan string, 64)} }

func (l *eventLog) WillSpeakRange(uint64, speech.Range) { l.ch <- "range" }
func (l *eventLog) DidFinish(uint64)                    { l.ch <- "finish" }
func (l *eventLog) DidCancel(uint64)                    { l.ch <- "cancel" }
func (l *eventLog) DidPause(uint64)                     { l.ch <- "pause" }
func (l *eventLog) DidContinue(uint64)                  { l.ch <- "continue" }
func (l *eventLog) DidFail(uint64, error)               { l.ch <- "fail" }

// waitFor drains events until want arrives.
func (l *eventLog) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-l.ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func testEngine(t *testing.T, binary string, args ...string) *processEngine {
	t.Helper()
	path, err := exec.LookPath(binary)
	if err != nil {
		t.Skipf("%s not available", binary)
	}
	return newProcessEngine(commandDriver{
		name:           binary,
		binary:         path,
		args:           func(*speech.Utterance, string) []string { return args },
		wordsPerMinute: wordsPerMinute,
		listVoices: func(string) ([]voice.Voice, error) {
			return []voice.Voice{{ID: "v", Name: "v"}}, nil
		},
	})
}

func TestProcessEngineFinish(t *testing.T) {
	e := testEngine(t, "cat")
	events := newEventLog()

	if err := e.Speak(&speech.Utterance{ID: 1, Text: "hello world"}, events); err != nil {
		t.Fatal(err)
	}
	events.waitFor(t, "finish")
}

func TestProcessEngineFailure(t *testing.T) {
	e := testEngine(t, "false")
	events := newEventLog()

	if err := e.Speak(&speech.Utterance{ID: 1, Text: "x"}, events); err != nil {
		t.Fatal(err)
	}
	events.waitFor(t, "fail")
}

func TestProcessEngineStopAndPause(t *testing.T) {
	e := testEngine(t, "sleep", "10")
	events := newEventLog()

	if err := e.Speak(&speech.Utterance{ID: 1, Text: "a b c"}, events); err != nil {
		t.Fatal(err)
	}
	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	events.waitFor(t, "pause")
	if err := e.Resume(); err != nil {
		t.Fatal(err)
	}
	events.waitFor(t, "continue")

	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	// stopping a paused process must still terminate it
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}
	events.waitFor(t, "cancel")
	if err := e.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestProcessEngineSpeakReplaces(t *testing.T) {
	e := testEngine(t, "sleep", "10")
	first, second := newEventLog(), newEventLog()

	if err := e.Speak(&speech.Utterance{ID: 1, Text: "a"}, first); err != nil {
		t.Fatal(err)
	}
	if err := e.Speak(&speech.Utterance{ID: 2, Text: "b"}, second); err != nil {
		t.Fatal(err)
	}
	first.waitFor(t, "cancel")

	_ = e.Stop()
	second.waitFor(t, "cancel")
}

func TestProcessEngineVoicesCached(t *testing.T) {
	e := testEngine(t, "cat")
	calls := 0
	e.driver.listVoices = func(string) ([]voice.Voice, error) {
		calls++
		return nil, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := e.Voices(); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("listVoices called %d times, want 1", calls)
	}
}
