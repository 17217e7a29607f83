package textutil

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint represents a trigram-frequency vector for similarity comparison.
type Fingerprint struct {
	grams map[string]float64
	norm  float64
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases text, strips combining marks, and collapses everything that
// is not a letter or digit into single spaces.
func Fold(text string) string {
	folded, _, err := transform.String(foldMarks, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text has no letters or digits.
func NewFingerprint(text string) *Fingerprint {
	grams := Trigrams(text)
	if len(grams) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(grams))
	for _, gram := range grams {
		counts[gram]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return &Fingerprint{grams: counts, norm: math.Sqrt(sum)}
}

// Trigrams splits folded text into padded character trigrams per word.
func Trigrams(text string) []string {
	var grams []string
	for _, word := range strings.Fields(Fold(text)) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			grams = append(grams, string(padded[i:i+3]))
		}
	}
	return grams
}

// GramCount returns the number of unique trigrams in the fingerprint.
func (f *Fingerprint) GramCount() int {
	if f == nil {
		return 0
	}
	return len(f.grams)
}
