//go:build unix

package tts

import (
	"os"
	"syscall"
)

// pauseProcess suspends the synthesizer process.
func pauseProcess(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

// resumeProcess continues a suspended synthesizer process.
func resumeProcess(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
