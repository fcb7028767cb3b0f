package session

import (
	"errors"
	"fmt"

	"speakeasy/internal/content"
	"speakeasy/internal/playback"
)

// Message renders err as the single line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		httpErr     *content.HTTPError
		netErr      *content.NetworkError
		parseErr    *content.ParsingError
		playbackErr *playback.PlaybackError
	)
	switch {
	case errors.Is(err, content.ErrInvalidURL):
		return "Invalid URL format"
	case errors.Is(err, content.ErrEmptyExtraction):
		return "No readable text found at this URL"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP error: %d", httpErr.StatusCode)
	case errors.As(err, &netErr):
		return fmt.Sprintf("Network error: %v", netErr.Err)
	case errors.As(err, &parseErr):
		return fmt.Sprintf("Parsing error: %s", parseErr.Detail)
	case errors.As(err, &playbackErr):
		return fmt.Sprintf("Playback failed: %v", playbackErr.Err)
	default:
		return err.Error()
	}
}
