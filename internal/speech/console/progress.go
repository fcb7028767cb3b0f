package console

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"speakeasy/internal/cli/scheme/colours"
	"speakeasy/internal/domain/speech"
	"speakeasy/internal/session"
)

// snippetRadius is how many runes of context surround the active word.
const snippetRadius = 30

// progressView redraws a single status line with the active word highlighted.
type progressView struct {
	out       io.Writer
	started   bool
	ended     bool
	lastState speech.PlaybackState
	lastRange speech.Range
}

func newProgressView(out io.Writer) *progressView {
	return &progressView{out: out}
}

// Render draws st if it changed anything visible.
func (v *progressView) Render(st session.Status) {
	if st.State != speech.Idle {
		v.started = true
	}
	if v.started && st.State == speech.Idle && !st.Processing {
		v.ended = true
		return
	}
	if !v.started || (st.State == v.lastState && st.Range == v.lastRange) {
		return
	}
	v.lastState, v.lastRange = st.State, st.Range

	before, word, after := snippet(st.Text, st.Range, snippetRadius)
	fmt.Fprint(v.out, "\r\033[K")
	colours.ForState(st.State.String()).Fprintf(v.out, "%-8s %3.0f%% ", st.State, st.Fraction*100)
	fmt.Fprint(v.out, before)
	colours.Highlight.Fprint(v.out, word)
	fmt.Fprint(v.out, after)
}

// Ended reports whether playback went back to idle after starting.
func (v *progressView) Ended() bool {
	return v.ended
}

// snippet cuts the text around r into the part before, the active range and
// the part after, each with newlines flattened.
func snippet(text string, r speech.Range, radius int) (string, string, string) {
	runes := []rune(text)
	start, end := clamp(r.Start, 0, len(runes)), clamp(r.End, 0, len(runes))
	if end < start {
		end = start
	}

	from, to := clamp(start-radius, 0, len(runes)), clamp(end+radius, 0, len(runes))
	before, after := string(runes[from:start]), string(runes[end:to])
	if from > 0 {
		before = "…" + before
	}
	if to < len(runes) {
		after += "…"
	}
	return flatten(before), flatten(string(runes[start:end])), flatten(after)
}

// flatten collapses whitespace runs to single spaces, keeping one at either
// edge so the pieces still join up.
func flatten(s string) string {
	out := strings.Join(strings.Fields(s), " ")
	if out == "" {
		if s != "" {
			return " "
		}
		return ""
	}
	if strings.TrimLeftFunc(s, unicode.IsSpace) != s {
		out = " " + out
	}
	if strings.TrimRightFunc(s, unicode.IsSpace) != s {
		out += " "
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
