package crisis

import (
	"strings"

	"github.com/zhouzirui/haven/backend/internal/lexicon"
)

// Detector flags messages containing self-harm language.
// Matching is a case-insensitive substring scan, so misses are expected.
type Detector struct {
	keywords []string
}

// NewDetector builds a detector over the given vocabulary. Blank terms are ignored.
func NewDetector(keywords []string) *Detector {
	normalized := make([]string, 0, len(keywords))
	for _, word := range keywords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		normalized = append(normalized, word)
	}
	return &Detector{keywords: normalized}
}

// FromLexicon builds a detector from the lexicon's crisis vocabulary.
func FromLexicon(lex *lexicon.Lexicon) *Detector {
	return NewDetector(lex.Crisis.Keywords)
}

// Detect reports whether any crisis keyword appears in text.
func (d *Detector) Detect(text string) bool {
	normalized := strings.ToLower(text)
	for _, word := range d.keywords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

// Matches returns every keyword found in text, in vocabulary order.
func (d *Detector) Matches(text string) []string {
	normalized := strings.ToLower(text)
	var found []string
	for _, word := range d.keywords {
		if strings.Contains(normalized, word) {
			found = append(found, word)
		}
	}
	return found
}
