//go:build !unix

package tts

import (
	"errors"
	"os"
)

var errPauseUnsupported = errors.New("pausing a synthesizer process is not supported on this platform")

func pauseProcess(*os.Process) error {
	return errPauseUnsupported
}

func resumeProcess(*os.Process) error {
	return errPauseUnsupported
}
