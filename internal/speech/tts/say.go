package tts

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

// newSayEngine drives the macOS `say` command.
func newSayEngine(config Config) (Synthesizer, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	return newProcessEngine(commandDriver{
		name:           EngineTypeSay.String(),
		binary:         path,
		outputExt:      ".aiff",
		args:           sayArgs,
		wordsPerMinute: wordsPerMinute,
		listVoices:     listSayVoices,
	}), nil
}

func sayArgs(u *speech.Utterance, output string) []string {
	args := []string{}
	if u.VoiceID != "" && u.VoiceID != "default" {
		args = append(args, "-v", u.VoiceID)
	}

	// Set rate (words per minute, default is ~175)
	args = append(args, "-r", fmt.Sprintf("%.0f", wordsPerMinute(u.Rate)))

	if output != "" {
		args = append(args, "-o", output)
	}
	return append(args, "-f", "-")
}

func listSayVoices(binary string) ([]voice.Voice, error) {
	output, err := exec.Command(binary, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list say voices: %w", err)
	}
	return parseSayVoices(output), nil
}

// parseSayVoices reads `say -v ?` output. Each line looks like
// "Samantha (Enhanced)  en_US    # Hello, my name is Samantha."
func parseSayVoices(output []byte) []voice.Voice {
	var voices []voice.Voice
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		locale := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, voice.Voice{
			ID:           name,
			Name:         name,
			LanguageCode: strings.ReplaceAll(locale, "_", "-"),
			Quality:      qualityFromName(name),
		})
	}
	return voice.SortByName(voices)
}

func qualityFromName(name string) voice.Quality {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "(premium)"):
		return voice.QualityPremium
	case strings.Contains(lower, "(enhanced)"):
		return voice.QualityEnhanced
	default:
		return voice.QualityDefault
	}
}
