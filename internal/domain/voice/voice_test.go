package voice

import (
	"errors"
	"testing"
)

var catalog = []Voice{
	{ID: "Samantha", Name: "Samantha", LanguageCode: "en-US", Quality: QualityEnhanced},
	{ID: "Albert", Name: "Albert", LanguageCode: "en-US"},
	{ID: "Amélie", Name: "Amélie", LanguageCode: "fr-CA", Quality: QualityPremium},
	{ID: "en-GB-Neural2-A", Name: "en-GB-Neural2-A", LanguageCode: "en-GB"},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		wantID string
		wantOK bool
	}{
		{"exact", "Albert", "Albert", true},
		{"reverse dns", "com.apple.voice.compact.en-US.Samantha", "Samantha", true},
		{"case insensitive segment", "com.apple.voice.premium.fr-CA.amélie", "Amélie", true},
		{"dotted cloud id", "en-GB-Neural2-A", "en-GB-Neural2-A", true},
		{"unknown", "com.apple.voice.compact.en-US.Zarvox", "", false},
		{"empty", "", "", false},
		{"trailing dot", "Albert.", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Resolve(catalog, tt.id)
			if ok != tt.wantOK || v.ID != tt.wantID {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.id, v.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	if got := ForLanguage(catalog, "EN"); len(got) != 3 {
		t.Errorf("ForLanguage(EN) = %d voices, want 3", len(got))
	}
	if got := ForLanguage(catalog, "fr-CA"); len(got) != 1 || got[0].ID != "Amélie" {
		t.Errorf("ForLanguage(fr-CA) = %v", got)
	}

	high := HighQuality(catalog)
	if len(high) != 2 {
		t.Fatalf("HighQuality() = %d voices, want 2", len(high))
	}
	for _, v := range high {
		if v.Quality < QualityEnhanced {
			t.Errorf("HighQuality() kept %s", v.ID)
		}
	}
}

func TestSortByName(t *testing.T) {
	sorted := SortByName(catalog)
	want := []string{"Albert", "Amélie", "Samantha", "en-GB-Neural2-A"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("SortByName() order = %v", sorted)
		}
	}
	if catalog[0].ID != "Samantha" {
		t.Error("SortByName() modified its input")
	}
}

func TestQualityString(t *testing.T) {
	for q, want := range map[Quality]string{
		QualityDefault:  "default",
		QualityEnhanced: "enhanced",
		QualityPremium:  "premium",
	} {
		if got := q.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

type staticCatalog struct {
	voices []Voice
	err    error
}

func (c staticCatalog) Voices() ([]Voice, error) { return c.voices, c.err }

func TestResolveIn(t *testing.T) {
	v, ok := ResolveIn(staticCatalog{voices: catalog}, "com.apple.voice.compact.en-US.Albert")
	if !ok || v.ID != "Albert" {
		t.Errorf("ResolveIn() = %q, %v; want Albert", v.ID, ok)
	}
	if _, ok := ResolveIn(staticCatalog{err: errors.New("offline")}, "Albert"); ok {
		t.Error("ResolveIn() resolved against a failing catalog")
	}
}
