package tts

import (
	"time"
	"unicode"

	"speakeasy/internal/domain/speech"
)

// WordRanges splits text into rune-offset ranges of whitespace separated words.
func WordRanges(text string) []speech.Range {
	var ranges []speech.Range
	start := -1
	i := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				ranges = append(ranges, speech.Range{Start: start, End: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i++
	}
	if start >= 0 {
		ranges = append(ranges, speech.Range{Start: start, End: i})
	}
	return ranges
}

// wordInterval is the time one word takes at the given words per minute.
func wordInterval(wpm float64) time.Duration {
	if wpm <= 0 {
		wpm = defaultWordsPerMinute
	}
	return time.Duration(float64(time.Minute) / wpm)
}

// wordTicker announces word ranges on a fixed cadence for engines that have
// no native range callbacks. It can be paused and is stopped exactly once.
type wordTicker struct {
	ctrl   chan bool // true pauses, false resumes
	done   chan struct{}
	exited chan struct{}
}

func startWordTicker(ranges []speech.Range, interval time.Duration, announce func(speech.Range)) *wordTicker {
	t := &wordTicker{
		ctrl:   make(chan bool, 4),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go t.run(ranges, interval, announce)
	return t
}

func (t *wordTicker) run(ranges []speech.Range, interval time.Duration, announce func(speech.Range)) {
	defer close(t.exited)

	next := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for next < len(ranges) {
		select {
		case <-t.done:
			return
		case pause := <-t.ctrl:
			if !pause {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if !t.waitResume() {
				return
			}
			timer.Reset(interval)
		case <-timer.C:
			announce(ranges[next])
			next++
			timer.Reset(interval)
		}
	}
}

// waitResume blocks until a resume or stop arrives. It reports false on stop.
func (t *wordTicker) waitResume() bool {
	for {
		select {
		case <-t.done:
			return false
		case pause := <-t.ctrl:
			if !pause {
				return true
			}
		}
	}
}

func (t *wordTicker) send(pause bool) {
	select {
	case t.ctrl <- pause:
	case <-t.exited:
	}
}

func (t *wordTicker) pause()  { t.send(true) }
func (t *wordTicker) resume() { t.send(false) }

func (t *wordTicker) stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
