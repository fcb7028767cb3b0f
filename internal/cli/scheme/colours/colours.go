package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title     = color.New(color.FgCyan, color.Bold)
	Voice     = color.New(color.FgMagenta)
	Prompt    = color.New(color.FgGreen, color.Bold)
	Error     = color.New(color.FgRed, color.Bold)
	Success   = color.New(color.FgGreen)
	Info      = color.New(color.FgBlue)
	Warning   = color.New(color.FgYellow)
	Highlight = color.New(color.FgBlack, color.BgYellow)
	Muted     = color.New(color.Faint)
)

// ForState picks the colour used to print a playback state name.
func ForState(state string) *color.Color {
	switch state {
	case "speaking":
		return Success
	case "paused":
		return Warning
	default:
		return Muted
	}
}
