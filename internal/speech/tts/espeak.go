// Cross-platform eSpeak implementation
package tts

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (Synthesizer, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return newProcessEngine(commandDriver{
		name:           EngineTypeESpeak.String(),
		binary:         espeakPath,
		outputExt:      ".wav",
		args:           espeakArgs,
		wordsPerMinute: wordsPerMinute,
		listVoices:     listESpeakVoices,
	}), nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func espeakArgs(u *speech.Utterance, output string) []string {
	args := []string{}

	if u.VoiceID != "" && u.VoiceID != "default" {
		args = append(args, "-v", u.VoiceID)
	}

	// Set speed (words per minute, default is 175)
	args = append(args, "-s", strconv.Itoa(int(wordsPerMinute(u.Rate))))

	if output != "" {
		args = append(args, "-w", output)
	}
	return append(args, "--stdin")
}

func listESpeakVoices(binary string) ([]voice.Voice, error) {
	output, err := exec.Command(binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list eSpeak voices: %w", err)
	}
	return parseESpeakVoices(string(output)), nil
}

// parseESpeakVoices reads `espeak --voices`. The voice file column is the
// identifier, since that is what -v accepts for every listed voice.
func parseESpeakVoices(output string) []voice.Voice {
	lines := strings.Split(output, "\n")
	voices := make([]voice.Voice, 0)
	seen := make(map[string]bool)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) < 5 || seen[fields[4]] {
			continue
		}
		seen[fields[4]] = true
		voices = append(voices, voice.Voice{
			ID:           fields[4],
			Name:         fields[3],
			LanguageCode: fields[1],
		})
	}

	return voice.SortByName(voices)
}
