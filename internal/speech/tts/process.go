package tts

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

const (
	defaultWordsPerMinute = 175.0
	minWordsPerMinute     = 90.0
	maxWordsPerMinute     = 360.0
)

// wordsPerMinute maps a normalized rate onto speaking speed so that 0.5 is
// the engine's natural pace.
func wordsPerMinute(rate float64) float64 {
	switch {
	case rate <= 0:
		return minWordsPerMinute
	case rate >= 1:
		return maxWordsPerMinute
	case rate <= 0.5:
		return minWordsPerMinute + rate/0.5*(defaultWordsPerMinute-minWordsPerMinute)
	default:
		return defaultWordsPerMinute + (rate-0.5)/0.5*(maxWordsPerMinute-defaultWordsPerMinute)
	}
}

// commandDriver describes how one command-line synthesizer is driven.
type commandDriver struct {
	name      string
	binary    string
	outputExt string
	// args builds the arguments for speaking u; an empty output path plays
	// through the speakers. The text itself is written to stdin.
	args func(u *speech.Utterance, output string) []string
	// wordsPerMinute maps the normalized rate to the engine's native unit.
	wordsPerMinute func(rate float64) float64
	listVoices     func(binary string) ([]voice.Voice, error)
}

// processRun is one utterance being spoken by one subprocess.
type processRun struct {
	cmd     *exec.Cmd
	id      uint64
	events  Events
	ticker  *wordTicker
	paused  bool
	stopped bool
}

// processEngine runs one synthesizer subprocess per utterance and fakes
// range callbacks with a word ticker. Pausing stops the process (SIGSTOP)
// where the platform allows it.
type processEngine struct {
	driver commandDriver
	log    *logrus.Entry

	mutex sync.Mutex
	run   *processRun

	voicesOnce sync.Once
	voices     []voice.Voice
	voicesErr  error
}

func newProcessEngine(driver commandDriver) *processEngine {
	return &processEngine{
		driver: driver,
		log:    logrus.WithFields(logrus.Fields{"component": "engine", "engine": driver.name}),
	}
}

func (e *processEngine) RateRange() (float64, float64) {
	return 0, 1
}

func (e *processEngine) Speak(u *speech.Utterance, events Events) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.stopLocked(); err != nil {
		e.log.WithError(err).Warn("Failed to stop previous utterance")
	}
	if events == nil {
		events = NopEvents{}
	}

	cmd := exec.Command(e.driver.binary, e.driver.args(u, "")...)
	cmd.Stdin = strings.NewReader(u.Text)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.driver.name, err)
	}

	id := u.ID
	wpm := e.driver.wordsPerMinute(u.Rate)
	run := &processRun{cmd: cmd, id: id, events: events}
	run.ticker = startWordTicker(WordRanges(u.Text), wordInterval(wpm), func(r speech.Range) {
		events.WillSpeakRange(id, r)
	})
	e.run = run

	e.log.WithFields(logrus.Fields{
		"utterance": id,
		"voice":     u.VoiceID,
		"wpm":       wpm,
		"runes":     u.Length(),
	}).Debug("Started synthesis")

	go e.wait(run)
	return nil
}

// wait reports the end of one utterance: finish when the process exits
// cleanly on its own, cancel when it was stopped, failure otherwise.
func (e *processEngine) wait(run *processRun) {
	err := run.cmd.Wait()

	e.mutex.Lock()
	run.ticker.stop()
	stopped := run.stopped
	if e.run == run {
		e.run = nil
	}
	e.mutex.Unlock()

	switch {
	case stopped:
		run.events.DidCancel(run.id)
	case err != nil:
		e.log.WithError(err).WithField("utterance", run.id).Warn("Synthesizer exited abnormally")
		run.events.DidFail(run.id, fmt.Errorf("%s exited: %w", e.driver.name, err))
	default:
		run.events.DidFinish(run.id)
	}
}

func (e *processEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.stopLocked()
}

func (e *processEngine) stopLocked() error {
	run := e.run
	if run == nil || run.stopped {
		return nil
	}
	run.stopped = true
	run.ticker.stop()
	if run.paused {
		// a stopped process has to run again to receive the kill
		_ = resumeProcess(run.cmd.Process)
		run.paused = false
	}
	if err := run.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop %s: %w", e.driver.name, err)
	}
	return nil
}

func (e *processEngine) Pause() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	run := e.run
	if run == nil || run.stopped || run.paused {
		return nil
	}
	if err := pauseProcess(run.cmd.Process); err != nil {
		return fmt.Errorf("failed to pause %s: %w", e.driver.name, err)
	}
	run.paused = true
	run.ticker.pause()
	run.events.DidPause(run.id)
	return nil
}

func (e *processEngine) Resume() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	run := e.run
	if run == nil || run.stopped || !run.paused {
		return nil
	}
	if err := resumeProcess(run.cmd.Process); err != nil {
		return fmt.Errorf("failed to resume %s: %w", e.driver.name, err)
	}
	run.paused = false
	run.ticker.resume()
	run.events.DidContinue(run.id)
	return nil
}

func (e *processEngine) Voices() ([]voice.Voice, error) {
	e.voicesOnce.Do(func() {
		e.voices, e.voicesErr = e.driver.listVoices(e.driver.binary)
	})
	return e.voices, e.voicesErr
}

// Record renders u into dir/name using the engine's file output.
func (e *processEngine) Record(u *speech.Utterance, dir, name string) ([]string, error) {
	output := filepath.Join(dir, name+e.driver.outputExt)
	cmd := exec.Command(e.driver.binary, e.driver.args(u, output)...)
	cmd.Stdin = strings.NewReader(u.Text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed to record: %w: %s", e.driver.name, err, out)
	}
	return []string{output}, nil
}
