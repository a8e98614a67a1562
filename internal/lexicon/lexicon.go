package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidLexicon is returned when a lexicon document fails validation.
var ErrInvalidLexicon = errors.New("invalid lexicon")

//go:embed default.toml
var defaultDocument string

// Emotion names understood by the analyzer.
const (
	EmotionJoy      = "joy"
	EmotionSadness  = "sadness"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionSurprise = "surprise"
	EmotionDisgust  = "disgust"
)

var knownEmotions = map[string]struct{}{
	EmotionJoy:      {},
	EmotionSadness:  {},
	EmotionAnger:    {},
	EmotionFear:     {},
	EmotionSurprise: {},
	EmotionDisgust:  {},
}

// Lexicon bundles every keyword list and user-facing template the classifiers use.
type Lexicon struct {
	Crisis   Crisis        `toml:"crisis"`
	Replies  Replies       `toml:"replies"`
	Rules    []ReplyRule   `toml:"reply"`
	Emotions []EmotionRule `toml:"emotion"`
}

// Crisis describes self-harm vocabulary and the safety copy returned on a match.
type Crisis struct {
	Keywords []string `toml:"keywords"`
	Message  string   `toml:"message"`
	Actions  []string `toml:"actions"`
}

// Replies holds the templates used when no rule applies.
type Replies struct {
	Default          string `toml:"default"`
	Fallback         string `toml:"fallback"`
	VoicePlaceholder string `toml:"voice_placeholder"`
}

// ReplyRule maps keywords to a static reply.
type ReplyRule struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
	Text     string   `toml:"text"`
}

// EmotionRule scores one emotion category and the sentiment it implies.
type EmotionRule struct {
	Name      string    `toml:"name"`
	Terms     []string  `toml:"terms"`
	Score     float64   `toml:"score"`
	Sentiment Sentiment `toml:"sentiment"`
}

// Sentiment is the polarity split an emotion rule writes when it matches.
type Sentiment struct {
	Positive float64 `toml:"positive"`
	Neutral  float64 `toml:"neutral"`
	Negative float64 `toml:"negative"`
}

// Default returns the built-in English lexicon.
func Default() *Lexicon {
	lex, err := Parse(strings.NewReader(defaultDocument))
	if err != nil {
		panic(fmt.Sprintf("lexicon: built-in document is broken: %v", err))
	}
	return lex
}

// Load reads a lexicon from a TOML file.
func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon %s: %w", path, err)
	}
	defer f.Close()

	lex, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Parse decodes and validates a lexicon document.
func Parse(r io.Reader) (*Lexicon, error) {
	lex := &Lexicon{}
	meta, err := toml.NewDecoder(r).Decode(lex)
	if err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidLexicon, strings.Join(keys, ", "))
	}

	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Validate checks the invariants the matchers rely on.
func (l *Lexicon) Validate() error {
	if len(nonBlank(l.Crisis.Keywords)) == 0 {
		return fmt.Errorf("%w: crisis.keywords must not be empty", ErrInvalidLexicon)
	}
	if strings.TrimSpace(l.Crisis.Message) == "" {
		return fmt.Errorf("%w: crisis.message is required", ErrInvalidLexicon)
	}
	if len(nonBlank(l.Crisis.Actions)) == 0 {
		return fmt.Errorf("%w: crisis.actions must not be empty", ErrInvalidLexicon)
	}
	if strings.TrimSpace(l.Replies.Default) == "" {
		return fmt.Errorf("%w: replies.default is required", ErrInvalidLexicon)
	}
	if strings.TrimSpace(l.Replies.Fallback) == "" {
		return fmt.Errorf("%w: replies.fallback is required", ErrInvalidLexicon)
	}

	for i, rule := range l.Rules {
		if strings.TrimSpace(rule.Text) == "" {
			return fmt.Errorf("%w: reply rule %d (%s) has no text", ErrInvalidLexicon, i, rule.Name)
		}
		if len(nonBlank(rule.Keywords)) == 0 {
			return fmt.Errorf("%w: reply rule %d (%s) has no keywords", ErrInvalidLexicon, i, rule.Name)
		}
	}

	for i, rule := range l.Emotions {
		if _, ok := knownEmotions[rule.Name]; !ok {
			return fmt.Errorf("%w: emotion rule %d has unknown name %q", ErrInvalidLexicon, i, rule.Name)
		}
		if len(nonBlank(rule.Terms)) == 0 {
			return fmt.Errorf("%w: emotion rule %q has no terms", ErrInvalidLexicon, rule.Name)
		}
		if rule.Score < 0 || rule.Score > 1 {
			return fmt.Errorf("%w: emotion rule %q score %.2f outside [0,1]", ErrInvalidLexicon, rule.Name, rule.Score)
		}
	}
	return nil
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
