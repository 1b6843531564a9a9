package scoring

import (
	"testing"

	"kouyu-server-go/internal/domain/language"
)

func TestNormalizeTextBasics(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		lang     string
		expected string
	}{
		{"lowercase and trim", "  Bonjour  ", "fr", "bonjour"},
		{"terminal punctuation stripped", "Hola!", "es", "hola"},
		{"whitespace collapsed", "guten   Tag", "de", "guten tag"},
		{"french accents folded", "éléphant", "fr", "elephant"},
		{"french cedilla folded", "garçon", "fr", "garcon"},
		{"german umlauts to digraphs", "müde", "de", "muede"},
		{"german eszett", "straße", "de", "strasse"},
		{"spanish enye", "niño", "es", "nino"},
		{"spanish accents", "está", "es", "esta"},
		{"unknown language passes through", "héllo", "xx", "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeText(tt.text, tt.lang)
			if got != tt.expected {
				t.Errorf("NormalizeText(%q, %s) = %q, want %q", tt.text, tt.lang, got, tt.expected)
			}
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	samples := []string{
		"Bonjour, ça va?",
		"Müde über die Straße!",
		"El niño está aquí.",
		"cœur sœur",
		"  multi   word   phrase  ",
		"こんにちは。",
	}

	registry := language.NewRegistry()
	for _, lang := range registry.Codes() {
		for _, text := range samples {
			once := NormalizeText(text, lang)
			twice := NormalizeText(once, lang)
			if once != twice {
				t.Errorf("NormalizeText not idempotent for lang %s: %q -> %q -> %q", lang, text, once, twice)
			}
		}
	}
}

func TestDiacriticEquivalent(t *testing.T) {
	if !diacriticEquivalent("eleve", "élève") {
		t.Error("expected diacritic equivalence for élève")
	}
	if diacriticEquivalent("chat", "chien") {
		t.Error("different words must not be equivalent")
	}
}
