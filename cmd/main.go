package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"speakeasy/internal/cli/scheme/colours"
	"speakeasy/internal/config"
	"speakeasy/internal/speech/console"
)

func main() {
	var (
		configFile string
		app        *console.Console
	)

	rootCmd := &cobra.Command{
		Use:   "speakeasy",
		Short: "🔊 Read text and web pages aloud",
		Long: `
┌─────────────────────────────────────┐
│  🔊 Speakeasy                       │
│  Text and web pages, read aloud     │
└─────────────────────────────────────┘

Paste text or a link and Speakeasy reads it to you. Links are fetched and
cleaned down to their paragraphs first.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := cfg.ConfigureLogging(); err != nil {
				return err
			}
			app = console.New(cfg)
			watchSignals(app)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is speakeasy.yaml in the user config dir)")

	// Speak command
	speakCmd := &cobra.Command{
		Use:   "speak [text|url]",
		Short: "🗣️ Read text or a web page aloud",
		Long:  "Read the given text, a URL's paragraphs or the clipboard. Press 'p' to pause/resume and 's' to stop.",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.Speak(cmd, args) },
	}
	speakCmd.Flags().BoolP("clipboard", "c", false, "Read the clipboard contents")

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export [text|url]",
		Short: "💾 Save speech to the output directory",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.Export(cmd, args) },
	}
	exportCmd.Flags().BoolP("clipboard", "c", false, "Export the clipboard contents")
	exportCmd.Flags().StringP("name", "n", "", "Base file name (default speakeasy-<timestamp>)")

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List available voices",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.ListVoices(cmd, args) },
	}
	voicesCmd.Flags().StringP("lang", "l", "", "Filter by language code prefix, e.g. en or en-GB")
	voicesCmd.Flags().Bool("high-quality", false, "Only enhanced and premium voices")

	// Engines command
	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "🔧 List speech engines available on this machine",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.ListEngines(cmd, args) },
	}

	// Settings commands
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show or change settings",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.ShowSettings(cmd, args) },
	}
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "✏️ Change settings",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.SetSettings(cmd, args) },
	}
	setCmd.Flags().StringP("voice", "v", "", "Voice identifier or name")
	setCmd.Flags().Float64P("speed", "s", 1.0, "Speed multiplier, 0.5 to 2.0")
	setCmd.Flags().Float64("rate", 0.5, "Normalized speech rate, 0 to 1")
	setCmd.Flags().StringP("output", "o", "", "Output directory for exports")
	setCmd.Flags().String("shortcut", "", "Read-text shortcut, e.g. cmd+shift+p")
	setCmd.Flags().Bool("high-quality", false, "Only list enhanced and premium voices")
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "↩️ Restore default settings",
		RunE:  func(cmd *cobra.Command, args []string) error { return app.ResetSettings(cmd, args) },
	}
	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "📋 Show settings",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.ShowSettings(cmd, args) },
		},
		setCmd,
		resetCmd,
	)

	// Cache commands
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Manage page and audio caches",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "📊 Show cache status",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.CacheStatus(cmd, args) },
		},
		&cobra.Command{
			Use:   "clear",
			Short: "🧹 Clear caches",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.ClearCache(cmd, args) },
		},
	)

	rootCmd.AddCommand(speakCmd, exportCmd, voicesCmd, enginesCmd, settingsCmd, cacheCmd)

	err := rootCmd.Execute()
	if app != nil {
		app.Shutdown()
	}
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// watchSignals stops playback before exiting on Ctrl+C.
func watchSignals(app *console.Console) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Shutdown()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye!"))
		os.Exit(0)
	}()
}
