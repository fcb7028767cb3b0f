package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"speakeasy/internal/domain/speech"
	"speakeasy/internal/domain/voice"
)

const (
	// requests are limited to 5000 bytes of input
	cloudChunkBytes       = 4800
	cloudDefaultVoice     = "en-US-Chirp3-HD-Charon"
	cloudListTimeout      = 10 * time.Second
	cloudProgressPeriod   = 100 * time.Millisecond
	cloudSpeakerRate      = beep.SampleRate(24000)
	cloudSynthesisTimeout = 60 * time.Second
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// cloudChunk is one synthesized slice of the utterance text.
type cloudChunk struct {
	text     string
	start    int // rune offset of the chunk within the utterance
	words    []speech.Range
	path     string
	streamer beep.StreamSeekCloser
}

// cloudRun is the playback of one utterance.
type cloudRun struct {
	id      uint64
	events  Events
	chunks  []*cloudChunk
	ctrl    *beep.Ctrl
	playing int // index of the chunk being streamed, guarded by the speaker lock
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	paused  bool
}

// GoogleClassicTTSEngine synthesizes MP3 audio with Google Cloud
// Text-to-Speech, caches it on disk and plays it through beep's speaker.
type GoogleClassicTTSEngine struct {
	client       *texttospeech.Client
	ctx          context.Context
	voice        string
	cacheRootDir string
	log          *logrus.Entry

	mu  sync.Mutex
	run *cloudRun

	// the voice list is fetched once; failures are retried on the next call
	voicesMu sync.Mutex
	voices   []voice.Voice
}

func newGoogleClassicTTSEngine(config Config) (*GoogleClassicTTSEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	voiceName := config.Voice
	if voiceName == "" || voiceName == "default" {
		voiceName = cloudDefaultVoice
	}

	return &GoogleClassicTTSEngine{
		client:       client,
		ctx:          ctx,
		voice:        voiceName,
		cacheRootDir: config.CacheDir,
		log:          logrus.WithFields(logrus.Fields{"component": "engine", "engine": EngineTypeGoogleClassic.String()}),
	}, nil
}

func (g *GoogleClassicTTSEngine) RateRange() (float64, float64) {
	return 0, 1
}

// Speak starts synthesis in the background; synthesis errors arrive as DidFail.
func (g *GoogleClassicTTSEngine) Speak(u *speech.Utterance, events Events) error {
	if events == nil {
		events = NopEvents{}
	}
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("failed to initialise audio output: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()

	ctx, cancel := context.WithTimeout(g.ctx, cloudSynthesisTimeout)
	run := &cloudRun{
		id:     u.ID,
		events: events,
		chunks: splitIntoChunks(u.Text, cloudChunkBytes),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	g.run = run

	go g.play(ctx, run, u)
	return nil
}

func (g *GoogleClassicTTSEngine) play(ctx context.Context, run *cloudRun, u *speech.Utterance) {
	defer run.cancel()

	voiceName := g.voiceFor(u)
	if err := g.synthesize(ctx, u.Text, voiceName, u.Rate, run.chunks); err != nil {
		g.mu.Lock()
		stopped := run.stopped
		g.mu.Unlock()
		if stopped {
			return
		}
		g.log.WithError(err).WithField("utterance", run.id).Warn("Synthesis failed")
		run.events.DidFail(run.id, err)
		return
	}

	streams := make([]beep.Streamer, 0, len(run.chunks)*2+1)
	for i, chunk := range run.chunks {
		s, err := openChunk(chunk)
		if err != nil {
			closeChunks(run.chunks)
			run.events.DidFail(run.id, err)
			return
		}
		idx := i
		streams = append(streams, beep.Callback(func() { run.playing = idx }), s)
	}
	streams = append(streams, beep.Callback(func() {
		close(run.done)
		run.events.DidFinish(run.id)
	}))

	g.mu.Lock()
	if run.stopped {
		g.mu.Unlock()
		closeChunks(run.chunks)
		return
	}
	run.ctrl = &beep.Ctrl{Streamer: beep.Seq(streams...), Paused: run.paused}
	speaker.Play(run.ctrl)
	g.mu.Unlock()

	g.trackProgress(run)
	closeChunks(run.chunks)
}

// trackProgress maps the played share of the current chunk onto its words
// and announces each word once.
func (g *GoogleClassicTTSEngine) trackProgress(run *cloudRun) {
	ticker := time.NewTicker(cloudProgressPeriod)
	defer ticker.Stop()

	last := speech.Range{Start: -1}
	for {
		select {
		case <-run.done:
			return
		case <-ticker.C:
		}

		g.mu.Lock()
		stopped := run.stopped
		g.mu.Unlock()
		if stopped {
			return
		}

		speaker.Lock()
		chunk := run.chunks[run.playing]
		pos, length := chunk.streamer.Position(), chunk.streamer.Len()
		speaker.Unlock()

		r, ok := wordAt(chunk, pos, length)
		if ok && r != last {
			last = r
			run.events.WillSpeakRange(run.id, r)
		}
	}
}

// wordAt returns the utterance range of the word being played.
func wordAt(chunk *cloudChunk, pos, length int) (speech.Range, bool) {
	if len(chunk.words) == 0 || length <= 0 {
		return speech.Range{}, false
	}
	offset := int(float64(pos) / float64(length) * float64(utf8.RuneCountInString(chunk.text)))
	current := chunk.words[0]
	for _, w := range chunk.words {
		if w.Start > offset {
			break
		}
		current = w
	}
	return speech.Range{Start: chunk.start + current.Start, End: chunk.start + current.End}, true
}

func (g *GoogleClassicTTSEngine) synthesize(ctx context.Context, text, voiceName string, rate float64, chunks []*cloudChunk) error {
	cacheDir := g.cacheRootDir
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	// Create a unique identifier for this specific text + voice + rate combination
	contentHash := md5Sum(fmt.Sprintf("%s|%s|%.2f", text, voiceName, rate))[:12]

	for i, chunk := range chunks {
		chunk.path = filepath.Join(cacheDir, fmt.Sprintf("audio_%s_%d.mp3", contentHash, i))
		if _, err := os.Stat(chunk.path); err == nil {
			continue
		}

		audioCfg := &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		}
		// Chirp voices don't support speakingRate
		if !strings.Contains(strings.ToLower(voiceName), "chirp") {
			audioCfg.SpeakingRate = rate*1.5 + 0.5
		}

		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk.text},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: languageOf(voiceName),
				Name:         voiceName,
			},
			AudioConfig: audioCfg,
		}
		resp, err := g.client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}

		if err := os.WriteFile(chunk.path, resp.AudioContent, 0644); err != nil {
			return fmt.Errorf("failed to write MP3 chunk %d to %s: %w", i, chunk.path, err)
		}

		g.log.WithFields(logrus.Fields{
			"chunk": i + 1,
			"of":    len(chunks),
			"path":  chunk.path,
		}).Debug("Cached audio chunk")
	}
	return nil
}

func (g *GoogleClassicTTSEngine) voiceFor(u *speech.Utterance) string {
	if u.VoiceID != "" && u.VoiceID != "default" {
		return u.VoiceID
	}
	return g.voice
}

func (g *GoogleClassicTTSEngine) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	return nil
}

func (g *GoogleClassicTTSEngine) stopLocked() {
	run := g.run
	if run == nil || run.stopped {
		return
	}
	run.stopped = true
	run.cancel()
	g.run = nil

	if run.ctrl != nil {
		speaker.Clear()
	}
	run.events.DidCancel(run.id)
}

func (g *GoogleClassicTTSEngine) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	run := g.run
	if run == nil || run.paused {
		return nil
	}
	run.paused = true
	if run.ctrl != nil {
		speaker.Lock()
		run.ctrl.Paused = true
		speaker.Unlock()
	}
	run.events.DidPause(run.id)
	return nil
}

func (g *GoogleClassicTTSEngine) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	run := g.run
	if run == nil || !run.paused {
		return nil
	}
	run.paused = false
	if run.ctrl != nil {
		speaker.Lock()
		run.ctrl.Paused = false
		speaker.Unlock()
	}
	run.events.DidContinue(run.id)
	return nil
}

func (g *GoogleClassicTTSEngine) Voices() ([]voice.Voice, error) {
	g.voicesMu.Lock()
	defer g.voicesMu.Unlock()

	if g.voices != nil {
		return g.voices, nil
	}

	ctx, cancel := context.WithTimeout(g.ctx, cloudListTimeout)
	defer cancel()

	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	voices := make([]voice.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		voices = append(voices, voice.Voice{
			ID:           v.Name,
			Name:         v.Name,
			LanguageCode: lang,
			Quality:      cloudQuality(v.Name),
		})
	}
	g.voices = voice.SortByName(voices)
	return g.voices, nil
}

// Record synthesizes u and copies the MP3 chunks into dir.
func (g *GoogleClassicTTSEngine) Record(u *speech.Utterance, dir, name string) ([]string, error) {
	chunks := splitIntoChunks(u.Text, cloudChunkBytes)
	ctx, cancel := context.WithTimeout(g.ctx, cloudSynthesisTimeout)
	defer cancel()

	if err := g.synthesize(ctx, u.Text, g.voiceFor(u), u.Rate, chunks); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		target := filepath.Join(dir, fmt.Sprintf("%s.mp3", name))
		if len(chunks) > 1 {
			target = filepath.Join(dir, fmt.Sprintf("%s_%02d.mp3", name, i+1))
		}
		data, err := os.ReadFile(chunk.path)
		if err != nil {
			return paths, fmt.Errorf("failed to read cached MP3 %s: %w", chunk.path, err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", target, err)
		}
		paths = append(paths, target)
	}
	return paths, nil
}

// CacheStats returns cache statistics for the engine
func (g *GoogleClassicTTSEngine) CacheStats() (CacheStats, error) {
	stats := CacheStats{Directory: g.cacheRootDir}

	// Walk through the entire cache directory tree
	err := filepath.Walk(g.cacheRootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Continue walking despite errors
		}

		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".mp3") {
			stats.Files++
			stats.Bytes += info.Size()
		}
		return nil
	})
	return stats, err
}

// ClearCache removes all cached files
func (g *GoogleClassicTTSEngine) ClearCache() error {
	return os.RemoveAll(g.cacheRootDir)
}

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(cloudSpeakerRate, cloudSpeakerRate.N(time.Second/10))
	})
	return speakerErr
}

func openChunk(chunk *cloudChunk) (beep.Streamer, error) {
	f, err := os.Open(chunk.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cached MP3 %s: %w", chunk.path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3 %s: %w", chunk.path, err)
	}
	chunk.streamer = streamer

	if format.SampleRate == cloudSpeakerRate {
		return streamer, nil
	}
	return beep.Resample(4, format.SampleRate, cloudSpeakerRate, streamer), nil
}

func closeChunks(chunks []*cloudChunk) {
	for _, chunk := range chunks {
		if chunk.streamer != nil {
			chunk.streamer.Close()
		}
	}
}

// languageOf derives the language code from a voice name like "en-GB-Neural2-A".
func languageOf(voiceName string) string {
	parts := strings.SplitN(voiceName, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func cloudQuality(name string) voice.Quality {
	switch {
	case strings.Contains(name, "Chirp"), strings.Contains(name, "Studio"):
		return voice.QualityPremium
	case strings.Contains(name, "Neural2"), strings.Contains(name, "Wavenet"):
		return voice.QualityEnhanced
	default:
		return voice.QualityDefault
	}
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// splitIntoChunks cuts text into pieces of at most limit bytes, preferring
// whitespace boundaries, and records where each piece starts in runes.
func splitIntoChunks(text string, limit int) []*cloudChunk {
	var chunks []*cloudChunk
	runeOffset := 0
	for len(text) > 0 {
		end := len(text)
		if end > limit {
			end = limit
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
			if cut := strings.LastIndexAny(text[:end], " \n\t"); cut > 0 {
				end = cut + 1
			}
			if end == 0 {
				_, size := utf8.DecodeRuneInString(text)
				end = size
			}
		}
		piece := text[:end]
		chunks = append(chunks, &cloudChunk{
			text:  piece,
			start: runeOffset,
			words: WordRanges(piece),
		})
		runeOffset += utf8.RuneCountInString(piece)
		text = text[end:]
	}
	return chunks
}
