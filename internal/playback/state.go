package playback

import "speakeasy/internal/domain/speech"

// machine guards PlaybackState transitions. It is only touched from the
// dispatch queue goroutine.
type machine struct {
	current     speech.PlaybackState
	transitions map[speech.PlaybackState][]speech.PlaybackState
	onEnter     map[speech.PlaybackState]func()
}

func newMachine() *machine {
	return &machine{
		current: speech.Idle,
		transitions: map[speech.PlaybackState][]speech.PlaybackState{
			speech.Idle:     {speech.Speaking},
			speech.Speaking: {speech.Paused, speech.Idle},
			speech.Paused:   {speech.Speaking, speech.Idle},
		},
		onEnter: make(map[speech.PlaybackState]func()),
	}
}

// Transition moves to the given state if the table allows it.
func (m *machine) Transition(to speech.PlaybackState) bool {
	valid := false
	for _, state := range m.transitions[m.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	m.current = to
	if enterFn, ok := m.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}
	return true
}

func (m *machine) Current() speech.PlaybackState {
	return m.current
}

// OnEnter registers a callback for entering a state.
func (m *machine) OnEnter(state speech.PlaybackState, fn func()) {
	m.onEnter[state] = fn
}
