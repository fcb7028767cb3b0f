package playback

import "fmt"

// PlaybackError reports that the synthesizer rejected or abandoned an utterance.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
