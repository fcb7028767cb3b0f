package content

import (
	"net/url"
	"strings"
)

var urlPrefixes = []string{"http://", "https://", "www."}

// IsURL reports whether input starts with http://, https:// or www.
// The check is case-sensitive and nothing is trimmed beforehand.
func IsURL(input string) bool {
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(input, prefix) {
			return true
		}
	}
	return false
}

// Normalize returns input unchanged when it already carries an http(s)
// scheme, prefixes https:// for www. hosts, and reports false otherwise.
func Normalize(input string) (string, bool) {
	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return input, true
	case strings.HasPrefix(input, "www."):
		return "https://" + input, true
	default:
		return "", false
	}
}

// Kind tells the session how to treat raw input.
type Kind int

const (
	KindText Kind = iota
	KindURL
)

// Classify decides whether input is a link to fetch or text to speak as is.
// Text that mentions "http" or "www" without being a well-formed link is
// rejected with ErrInvalidURL rather than read aloud verbatim.
func Classify(input string) (Kind, string, error) {
	if !IsURL(input) {
		if strings.Contains(input, "http") || strings.Contains(input, "www") {
			return KindText, "", ErrInvalidURL
		}
		return KindText, input, nil
	}

	normalized, ok := Normalize(input)
	if !ok {
		return KindURL, "", ErrInvalidURL
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" || strings.ContainsAny(normalized, " \t\r\n") {
		return KindURL, "", ErrInvalidURL
	}
	return KindURL, normalized, nil
}
