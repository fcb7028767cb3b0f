package speech

import "unicode/utf8"

// PlaybackState is the state of the single utterance pipeline.
type PlaybackState int

const (
	Idle PlaybackState = iota
	Speaking
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Range is a half-open [Start, End) rune offset range within an utterance text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsZero reports whether the range is empty and anchored at zero.
func (r Range) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Slice returns the part of text covered by r, clamped to the text bounds.
func (r Range) Slice(text string) string {
	runes := []rune(text)
	start, end := clampInt(r.Start, 0, len(runes)), clampInt(r.End, 0, len(runes))
	if end <= start {
		return ""
	}
	return string(runes[start:end])
}

// Utterance is the text handed to a synthesizer for one playback pass.
type Utterance struct {
	ID      uint64  `json:"id"`
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"` // empty means engine default
	Rate    float64 `json:"rate"`     // normalized 0..1, 0.5 is normal
}

// Length returns the utterance length in runes.
func (u *Utterance) Length() int {
	if u == nil {
		return 0
	}
	return utf8.RuneCountInString(u.Text)
}

// ProgressEvent replaces any earlier event for the same utterance.
type ProgressEvent struct {
	Fraction    float64 `json:"fraction"`
	ActiveRange Range   `json:"active_range"`
}

// NewProgressEvent derives the completed fraction from the start of the
// announced range. A zero total yields fraction 0.
func NewProgressEvent(r Range, total int) ProgressEvent {
	fraction := 0.0
	if total > 0 {
		fraction = float64(r.Start) / float64(total)
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return ProgressEvent{Fraction: fraction, ActiveRange: r}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
