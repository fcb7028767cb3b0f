// Package console is the terminal front end: it stands in for the menu bar,
// input and settings windows.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"speakeasy/internal/cli/scheme/colours"
	"speakeasy/internal/config"
	"speakeasy/internal/content"
	"speakeasy/internal/dispatch"
	"speakeasy/internal/session"
	"speakeasy/internal/settings"
	"speakeasy/internal/speech/tts"
)

// Console wires configuration, the engine and the session for the CLI.
type Console struct {
	cfg    *config.Config
	store  *settings.FileStore
	pages  *content.PageCache
	in     io.Reader
	out    io.Writer
	ctx    context.Context
	Cancel context.CancelFunc

	once    sync.Once
	initErr error
	engine  tts.Synthesizer
	queue   *dispatch.Queue
	session *session.Session
}

func New(cfg *config.Config) *Console {
	ctx, cancel := context.WithCancel(context.Background())

	var pages *content.PageCache
	if cfg.Cache.Enabled {
		pages = content.NewPageCache(cfg.Cache.Dir, cfg.Cache.MaxAge)
	}

	return &Console{
		cfg:    cfg,
		store:  settings.NewFileStore(cfg.SettingsDir, cfg.OutputDir),
		pages:  pages,
		in:     os.Stdin,
		out:    os.Stdout,
		ctx:    ctx,
		Cancel: cancel,
	}
}

// start creates the engine, queue and session on first use so commands
// that only touch settings work without a speech engine.
func (c *Console) start() error {
	c.once.Do(func() {
		engine, err := tts.NewEngine(tts.Config{
			Type:     c.cfg.TTS.Type,
			Voice:    c.cfg.TTS.Voice,
			CacheDir: c.cfg.TTS.CacheDir,
		})
		if err != nil {
			c.initErr = fmt.Errorf("failed to create tts engine: %w", err)
			return
		}

		c.engine = engine
		c.queue = dispatch.New(64)
		c.queue.Start(c.ctx)
		c.session = session.New(session.Config{
			Queue:  c.queue,
			Engine: engine,
			Fetcher: content.NewFetcher(content.FetcherConfig{
				Timeout:   c.cfg.Fetch.Timeout,
				UserAgent: c.cfg.Fetch.UserAgent,
				Cache:     c.pages,
			}),
			Store: c.store,
		})
	})
	return c.initErr
}

// Shutdown stops playback and the queue.
func (c *Console) Shutdown() {
	if c.session != nil {
		if err := c.session.Stop(c.ctx); err != nil {
			logrus.WithError(err).Debug("Stop on shutdown failed")
		}
	}
	c.Cancel()
}

func (c *Console) ShowWelcome() {
	fmt.Fprintln(c.out)
	colours.Title.Fprintln(c.out, "🔊 Welcome to Speakeasy!")
	fmt.Fprintln(c.out)
	colours.Info.Fprintln(c.out, "📚 Available commands:")
	fmt.Fprintln(c.out, "  • speakeasy speak <text|url>  - Read text or a web page aloud")
	fmt.Fprintln(c.out, "  • speakeasy speak --clipboard - Read the clipboard")
	fmt.Fprintln(c.out, "  • speakeasy export <text|url> - Save speech to the output directory")
	fmt.Fprintln(c.out, "  • speakeasy voices            - List installed voices")
	fmt.Fprintln(c.out, "  • speakeasy settings          - Show or change settings")
	fmt.Fprintln(c.out, "  • speakeasy cache             - Inspect or clear caches")
	fmt.Fprintln(c.out)
}

// Speak reads the input aloud and runs the pause/stop control loop until
// playback ends.
func (c *Console) Speak(cmd *cobra.Command, args []string) error {
	input, err := c.input(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input) == "" {
		colours.Warning.Fprintln(c.out, "🤷 Nothing to read.")
		return nil
	}
	if err := c.start(); err != nil {
		return err
	}

	if content.IsURL(input) {
		colours.Info.Fprintln(c.out, "🌐 Fetching page...")
	}

	view := newProgressView(c.out)
	finished := make(chan struct{})
	var finishOnce sync.Once
	if err := c.session.OnChange(c.ctx, func(st session.Status) {
		view.Render(st)
		if view.Ended() {
			finishOnce.Do(func() { close(finished) })
		}
	}); err != nil {
		return err
	}

	if err := c.session.Speak(c.ctx, input); err != nil {
		if msg := c.session.LastError(c.ctx); msg != "" {
			colours.Error.Fprintf(c.out, "❌ %s\n", msg)
			return nil
		}
		return err
	}

	colours.Success.Fprintln(c.out, "🎵 Speaking... 🎵")
	c.controlLoop(finished)
	return nil
}

func (c *Console) input(cmd *cobra.Command, args []string) (string, error) {
	fromClipboard, _ := cmd.Flags().GetBool("clipboard")
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("failed to read clipboard: %w", err)
		}
		return text, nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	colours.Prompt.Fprint(c.out, "📝 Enter text or a URL to read: ")
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) controlLoop(finished <-chan struct{}) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-c.ctx.Done():
				return
			}
		}
		close(lines)
	}()

	fmt.Fprint(c.out, "\n⏸️  Press 'p' to pause/resume, 's' to stop\n")
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-finished:
			fmt.Fprintln(c.out)
			colours.Success.Fprintln(c.out, "✅ Finished!")
			return
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep speaking until playback ends
				lines = nil
				continue
			}
			switch strings.TrimSpace(strings.ToLower(line)) {
			case "p", "pause":
				if err := c.session.TogglePause(c.ctx); err != nil {
					colours.Error.Fprintf(c.out, "\n❌ %s\n", session.Message(err))
				}
			case "s", "stop":
				_ = c.session.Stop(c.ctx)
				fmt.Fprintln(c.out)
				colours.Warning.Fprintln(c.out, "⏹️  Stopped")
				return
			case "":
			default:
				colours.Info.Fprintln(c.out, "\nℹ️  Use 'p' for pause/resume, 's' to stop")
			}
		}
	}
}

// Export writes the synthesized input to the output directory.
func (c *Console) Export(cmd *cobra.Command, args []string) error {
	input, err := c.input(cmd, args)
	if err != nil {
		return err
	}
	if err := c.start(); err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	paths, err := c.session.Export(c.ctx, input, name)
	if err != nil {
		colours.Error.Fprintf(c.out, "❌ %s\n", session.Message(err))
		return nil
	}
	for _, p := range paths {
		colours.Success.Fprintf(c.out, "💾 %s\n", p)
	}
	return nil
}
