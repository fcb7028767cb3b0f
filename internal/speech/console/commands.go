package console

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"speakeasy/internal/cli/scheme/colours"
	domain "speakeasy/internal/domain/settings"
	"speakeasy/internal/domain/voice"
	"speakeasy/internal/speech/tts"
)

// ListVoices prints the engine's voices, filtered by language and quality.
func (c *Console) ListVoices(cmd *cobra.Command, args []string) error {
	if err := c.start(); err != nil {
		return err
	}

	voices, err := c.engine.Voices()
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	current := c.session.Settings(c.ctx)
	lang, _ := cmd.Flags().GetString("lang")
	highQuality := current.ShowOnlyHighQualityVoices
	if cmd.Flags().Changed("high-quality") {
		highQuality, _ = cmd.Flags().GetBool("high-quality")
	}

	if lang != "" {
		voices = voice.ForLanguage(voices, lang)
	}
	if highQuality {
		voices = voice.HighQuality(voices)
	}
	voices = voice.SortByName(voices)

	fmt.Fprintln(c.out)
	colours.Title.Fprintln(c.out, "🎤 Available Voices")
	fmt.Fprintln(c.out)

	selected, hasSelected := voice.Resolve(voices, current.SelectedVoiceIdentifier)
	for _, v := range voices {
		marker := "  "
		if hasSelected && v.ID == selected.ID {
			marker = "★ "
		}
		fmt.Fprint(c.out, marker)
		colours.Voice.Fprintf(c.out, "%-32s", v.Name)
		fmt.Fprintf(c.out, " %-8s %s\n", v.LanguageCode, v.Quality)
		if v.ID != v.Name {
			colours.Muted.Fprintf(c.out, "    ID: %s\n", v.ID)
		}
	}

	if len(voices) == 0 {
		colours.Warning.Fprintln(c.out, "🔍 No voices match.")
	} else {
		colours.Success.Fprintf(c.out, "\n✨ %d voices\n", len(voices))
	}
	return nil
}

// ShowSettings prints the persisted settings.
func (c *Console) ShowSettings(cmd *cobra.Command, args []string) error {
	s := c.store.Load()

	fmt.Fprintln(c.out)
	colours.Title.Fprintln(c.out, "⚙️ Settings")
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  • Voice:          %s\n", s.SelectedVoiceIdentifier)
	fmt.Fprintf(c.out, "  • Speed:          %.2fx (rate %.2f)\n", s.UISpeed(), s.SpeechRate)
	fmt.Fprintf(c.out, "  • Output folder:  %s\n", s.OutputDirectory)
	fmt.Fprintf(c.out, "  • Read shortcut:  %s\n", s.Shortcuts.ReadTextShortcut)
	fmt.Fprintf(c.out, "  • High quality:   %t\n", s.ShowOnlyHighQualityVoices)
	colours.Muted.Fprintf(c.out, "\n  Stored in %s\n", c.store.Path())
	return nil
}

// SetSettings applies the flags that were given and saves the result.
func (c *Console) SetSettings(cmd *cobra.Command, args []string) error {
	s := c.store.Load()
	flags := cmd.Flags()

	if flags.Changed("voice") {
		s.SelectedVoiceIdentifier, _ = flags.GetString("voice")
	}
	if flags.Changed("speed") {
		speed, _ := flags.GetFloat64("speed")
		s.SetUISpeed(domain.ClampUISpeed(speed))
	}
	if flags.Changed("rate") {
		s.SpeechRate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("output") {
		s.OutputDirectory, _ = flags.GetString("output")
	}
	if flags.Changed("shortcut") {
		raw, _ := flags.GetString("shortcut")
		sc, err := domain.ParseShortcut(raw)
		if err != nil {
			return err
		}
		s.Shortcuts.ReadTextShortcut = sc.String()
	}
	if flags.Changed("high-quality") {
		s.ShowOnlyHighQualityVoices, _ = flags.GetBool("high-quality")
	}

	if err := c.store.Save(s); err != nil {
		return err
	}
	colours.Success.Fprintln(c.out, "✅ Settings saved")
	return c.ShowSettings(cmd, args)
}

func (c *Console) ResetSettings(cmd *cobra.Command, args []string) error {
	if err := c.store.Reset(); err != nil {
		return err
	}
	colours.Success.Fprintln(c.out, "✅ Settings reset to defaults")
	return c.ShowSettings(cmd, args)
}

// CacheStatus describes the page cache and, when the engine has one, the
// audio cache.
func (c *Console) CacheStatus(cmd *cobra.Command, args []string) error {
	colours.Title.Fprintln(c.out, "📊 Cache Status")

	if c.pages == nil {
		colours.Warning.Fprintln(c.out, "📄 Page cache disabled")
	} else {
		info, err := c.pages.Info()
		if err != nil {
			return fmt.Errorf("failed to get cache info: %w", err)
		}
		if info.Exists {
			colours.Success.Fprintln(c.out, "✅ Page cache exists")
			colours.Info.Fprintf(c.out, "📁 Location: %s\n", info.Path)
			colours.Info.Fprintf(c.out, "📏 Size: %s in %d pages\n", humanize.Bytes(uint64(info.Size)), info.Entries)
			colours.Info.Fprintf(c.out, "🕐 Last modified: %s\n", humanize.Time(info.LastModified))
			colours.Info.Fprintf(c.out, "⏳ Max age: %s\n", info.MaxAge)
		} else {
			colours.Warning.Fprintln(c.out, "❌ Page cache is empty")
		}
	}

	if err := c.start(); err != nil {
		colours.Muted.Fprintf(c.out, "🔇 No speech engine: %v\n", err)
		return nil
	}
	cacheable, ok := c.engine.(tts.CacheableEngine)
	if !ok {
		return nil
	}
	stats, err := cacheable.CacheStats()
	if err != nil {
		colours.Warning.Fprintf(c.out, "⚠️ Audio cache unavailable: %v\n", err)
		return nil
	}
	colours.Info.Fprintf(c.out, "🎧 Audio cache: %s in %d files (%s)\n",
		humanize.Bytes(uint64(stats.Bytes)), stats.Files, stats.Directory)
	return nil
}

func (c *Console) ClearCache(cmd *cobra.Command, args []string) error {
	if c.pages == nil {
		colours.Warning.Fprintln(c.out, "📄 Page cache disabled")
	} else {
		if err := c.pages.Clear(); err != nil {
			return fmt.Errorf("failed to clear page cache: %w", err)
		}
		colours.Success.Fprintln(c.out, "🧹 Page cache cleared")
	}

	if err := c.start(); err != nil {
		return nil
	}
	if cacheable, ok := c.engine.(tts.CacheableEngine); ok {
		if err := cacheable.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear audio cache: %w", err)
		}
		colours.Success.Fprintln(c.out, "🧹 Audio cache cleared")
	}
	return nil
}

// ListEngines prints the engines usable on this machine.
func (c *Console) ListEngines(cmd *cobra.Command, args []string) error {
	colours.Title.Fprintln(c.out, "🔧 Speech Engines")
	for _, e := range tts.GetAvailableEngines() {
		marker := "  "
		if e.String() == c.cfg.TTS.Type {
			marker = "★ "
		}
		fmt.Fprintf(c.out, "%s%s\n", marker, e)
	}
	colours.Muted.Fprintf(c.out, "\n  Configured: %s\n", c.cfg.TTS.Type)
	return nil
}
