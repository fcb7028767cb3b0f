package voice

import (
	"sort"
	"strings"
)

// Quality is the tier a synthesizer advertises for a voice.
type Quality int

const (
	QualityDefault Quality = iota
	QualityEnhanced
	QualityPremium
)

func (q Quality) String() string {
	switch q {
	case QualityEnhanced:
		return "enhanced"
	case QualityPremium:
		return "premium"
	default:
		return "default"
	}
}

// Voice describes one voice offered by a synthesizer.
type Voice struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	LanguageCode string  `json:"language_code"`
	Quality      Quality `json:"quality"`
}

// Catalog enumerates the voices of the underlying synthesizer.
type Catalog interface {
	Voices() ([]Voice, error)
}

// SortByName orders voices by display name, then identifier.
func SortByName(voices []Voice) []Voice {
	out := append([]Voice(nil), voices...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ForLanguage keeps voices whose language code starts with prefix ("en", "en-US").
func ForLanguage(voices []Voice, prefix string) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.LanguageCode), strings.ToLower(prefix)) {
			out = append(out, v)
		}
	}
	return out
}

// HighQuality keeps enhanced and premium voices.
func HighQuality(voices []Voice) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if v.Quality >= QualityEnhanced {
			out = append(out, v)
		}
	}
	return out
}

// Find looks a voice up by identifier.
func Find(voices []Voice, id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Resolve finds the voice for id. Besides exact identifiers it accepts
// reverse-DNS identifiers ("com.apple.voice.compact.en-US.Samantha") whose
// last segment names a voice, so settings written for one engine still
// select the same speaker on another.
func Resolve(voices []Voice, id string) (Voice, bool) {
	if id == "" {
		return Voice{}, false
	}
	if v, ok := Find(voices, id); ok {
		return v, true
	}
	short := id
	if i := strings.LastIndex(id, "."); i >= 0 && i < len(id)-1 {
		short = id[i+1:]
	}
	for _, v := range voices {
		if strings.EqualFold(v.ID, short) || strings.EqualFold(v.Name, short) {
			return v, true
		}
	}
	return Voice{}, false
}

// ResolveIn resolves id against the voices c lists. A catalog that cannot
// list its voices resolves nothing.
func ResolveIn(c Catalog, id string) (Voice, bool) {
	voices, err := c.Voices()
	if err != nil {
		return Voice{}, false
	}
	return Resolve(voices, id)
}
