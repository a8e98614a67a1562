package reply

import (
	"strings"

	"github.com/zhouzirui/haven/backend/internal/lexicon"
)

type rule struct {
	name     string
	keywords []string
	text     string
}

// Selector picks a static reply with a first-match-wins keyword chain.
type Selector struct {
	crisisMessage string
	defaultReply  string
	rules         []rule
}

// NewSelector builds a selector from the lexicon's reply rules and crisis copy.
func NewSelector(lex *lexicon.Lexicon) *Selector {
	rules := make([]rule, 0, len(lex.Rules))
	for _, r := range lex.Rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		rules = append(rules, rule{name: r.Name, keywords: keywords, text: r.Text})
	}

	return &Selector{
		crisisMessage: lex.Crisis.Message,
		defaultReply:  lex.Replies.Default,
		rules:         rules,
	}
}

// Select returns the reply for text. The crisis message always wins.
func (s *Selector) Select(text string, crisisDetected bool) string {
	if crisisDetected {
		return s.crisisMessage
	}
	_, reply := s.match(strings.ToLower(text))
	return reply
}

// RuleName reports which rule would answer text, or "default".
func (s *Selector) RuleName(text string) string {
	name, _ := s.match(strings.ToLower(text))
	return name
}

func (s *Selector) match(normalized string) (string, string) {
	for _, r := range s.rules {
		for _, k := range r.keywords {
			if strings.Contains(normalized, k) {
				return r.name, r.text
			}
		}
	}
	return "default", s.defaultReply
}
