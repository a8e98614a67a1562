package crisis

import (
	"testing"

	"github.com/zhouzirui/haven/backend/internal/lexicon"
)

func TestDetectKeywords(t *testing.T) {
	d := FromLexicon(lexicon.Default())

	positives := []string{
		"I want to kill myself",
		"sometimes I think about SUICIDE",
		"I just want to die",
		"i can't go on like this",
		"Thinking about self harm again",
		"everyone would be better off dead without me",
		"there's no point living anymore",
		"I took an overdose",
	}
	for _, msg := range positives {
		if !d.Detect(msg) {
			t.Fatalf("expected crisis detected for %q", msg)
		}
	}

	negatives := []string{
		"",
		"Hello",
		"I am so sad and lonely",
		"I had a stressful day at work",
		"self-care tips please",
	}
	for _, msg := range negatives {
		if d.Detect(msg) {
			t.Fatalf("did not expect crisis for %q", msg)
		}
	}
}

func TestDetectSubstringAnywhere(t *testing.T) {
	d := NewDetector([]string{"jump off"})
	if !d.Detect("thinking I could JUMP OFF the bridge") {
		t.Fatal("expected match regardless of case and position")
	}
}

func TestMatchesReturnsAllTerms(t *testing.T) {
	d := FromLexicon(lexicon.Default())
	got := d.Matches("I want to die, I want to kill myself")
	if len(got) != 2 || got[0] != "kill myself" || got[1] != "want to die" {
		t.Fatalf("unexpected matches: %v", got)
	}
}

func TestNewDetectorIgnoresBlankTerms(t *testing.T) {
	d := NewDetector([]string{"", "   "})
	if d.Detect("anything at all") {
		t.Fatal("blank vocabulary must never match")
	}
}
