package emotion

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/haven/backend/internal/lexicon"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

const (
	maxKeyPhrases      = 3
	minKeyPhraseLength = 10
)

var phraseDelimiters = regexp.MustCompile(`[.!?]`)

// defaultSentiment applies when no category matches.
var defaultSentiment = chat.Sentiment{Positive: 0, Neutral: 0.5, Negative: 0}

// rule is one emotion category. A match writes its score into the emotion
// slot and replaces the accumulator's whole sentiment split.
type rule struct {
	name      string
	pattern   *regexp.Regexp
	score     float64
	sentiment chat.Sentiment
	apply     func(*chat.Emotions, float64)
}

// Analyzer scores sentiment and emotions with ordered keyword rules.
type Analyzer struct {
	rules []rule
}

// NewAnalyzer compiles the lexicon's emotion rules, preserving their order.
func NewAnalyzer(lex *lexicon.Lexicon) *Analyzer {
	rules := make([]rule, 0, len(lex.Emotions))
	for _, r := range lex.Emotions {
		pattern := compileTerms(r.Terms)
		setter := emotionSetter(r.Name)
		if pattern == nil || setter == nil {
			continue
		}
		rules = append(rules, rule{
			name:    r.Name,
			pattern: pattern,
			score:   r.Score,
			sentiment: chat.Sentiment{
				Positive: r.Sentiment.Positive,
				Neutral:  r.Sentiment.Neutral,
				Negative: r.Sentiment.Negative,
			},
			apply: setter,
		})
	}
	return &Analyzer{rules: rules}
}

// Analyze returns the emotional read of text.
//
// Rules run in lexicon order against a single accumulator. When several
// categories match, each keeps its emotion score but only the last match's
// sentiment survives.
func (a *Analyzer) Analyze(text string) chat.EmotionalAnalysis {
	normalized := strings.ToLower(text)

	result := chat.EmotionalAnalysis{
		Sentiment:  defaultSentiment,
		KeyPhrases: KeyPhrases(text),
	}

	for _, r := range a.rules {
		if !r.pattern.MatchString(normalized) {
			continue
		}
		r.apply(&result.Emotions, r.score)
		result.Sentiment = r.sentiment
	}

	return result
}

// KeyPhrases splits text into sentences and keeps up to three longer than ten characters.
func KeyPhrases(text string) []string {
	phrases := make([]string, 0, maxKeyPhrases)
	for _, fragment := range phraseDelimiters.Split(text, -1) {
		fragment = strings.TrimSpace(fragment)
		if utf8.RuneCountInString(fragment) <= minKeyPhraseLength {
			continue
		}
		phrases = append(phrases, fragment)
		if len(phrases) == maxKeyPhrases {
			break
		}
	}
	return phrases
}

func compileTerms(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(term))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

func emotionSetter(name string) func(*chat.Emotions, float64) {
	switch name {
	case lexicon.EmotionJoy:
		return func(e *chat.Emotions, v float64) { e.Joy = v }
	case lexicon.EmotionSadness:
		return func(e *chat.Emotions, v float64) { e.Sadness = v }
	case lexicon.EmotionAnger:
		return func(e *chat.Emotions, v float64) { e.Anger = v }
	case lexicon.EmotionFear:
		return func(e *chat.Emotions, v float64) { e.Fear = v }
	case lexicon.EmotionSurprise:
		return func(e *chat.Emotions, v float64) { e.Surprise = v }
	case lexicon.EmotionDisgust:
		return func(e *chat.Emotions, v float64) { e.Disgust = v }
	default:
		return nil
	}
}
