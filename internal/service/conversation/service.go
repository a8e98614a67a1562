package conversation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/haven/backend/internal/analysis/crisis"
	"github.com/zhouzirui/haven/backend/internal/analysis/emotion"
	"github.com/zhouzirui/haven/backend/internal/analysis/reply"
	"github.com/zhouzirui/haven/backend/internal/lexicon"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/haven/backend/internal/service/chat"
)

// DefaultSessionTTL is how long a conversation may stay idle before it is swept.
const DefaultSessionTTL = time.Hour

// CrisisDetector flags self-harm language.
type CrisisDetector interface {
	Detect(text string) bool
}

// EmotionAnalyzer produces the emotional read of a message.
type EmotionAnalyzer interface {
	Analyze(text string) chat.EmotionalAnalysis
}

// ReplySelector chooses the assistant's reply.
type ReplySelector interface {
	Select(text string, crisisDetected bool) string
}

// Config wires the orchestrator's collaborators. Nil fields fall back to
// implementations built from Lexicon (or lexicon.Default when that is nil too).
type Config struct {
	Store      *chatservice.Store
	Lexicon    *lexicon.Lexicon
	Crisis     CrisisDetector
	Emotion    EmotionAnalyzer
	Replies    ReplySelector
	SessionTTL time.Duration
	Now        func() time.Time
}

// Service runs the per-message pipeline against a shared session store.
type Service struct {
	store            *chatservice.Store
	crisis           CrisisDetector
	emotion          EmotionAnalyzer
	replies          ReplySelector
	ttl              time.Duration
	now              func() time.Time
	crisisActions    []string
	fallbackReply    string
	voicePlaceholder string
}

// NewService builds the conversation orchestrator.
func NewService(cfg Config) *Service {
	lex := cfg.Lexicon
	if lex == nil {
		lex = lexicon.Default()
	}

	svc := &Service{
		store:            cfg.Store,
		crisis:           cfg.Crisis,
		emotion:          cfg.Emotion,
		replies:          cfg.Replies,
		ttl:              cfg.SessionTTL,
		now:              cfg.Now,
		crisisActions:    append([]string(nil), lex.Crisis.Actions...),
		fallbackReply:    lex.Replies.Fallback,
		voicePlaceholder: lex.Replies.VoicePlaceholder,
	}

	if svc.store == nil {
		svc.store = chatservice.NewStoreWithClock(cfg.Now)
	}
	if svc.crisis == nil {
		svc.crisis = crisis.FromLexicon(lex)
	}
	if svc.emotion == nil {
		svc.emotion = emotion.NewAnalyzer(lex)
	}
	if svc.replies == nil {
		svc.replies = reply.NewSelector(lex)
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultSessionTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Store exposes the underlying session store for read-only transport endpoints.
func (s *Service) Store() *chatservice.Store {
	return s.store
}

// ProcessMessage classifies text, records both turns, and returns the structured reply.
// It never fails: a panic anywhere in the pipeline yields the fallback response.
func (s *Service) ProcessMessage(_ context.Context, userID, sessionID, text string) (resp chat.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] pipeline failure user=%s session=%s: %v", userID, sessionID, r)
			resp = s.fallbackResponse()
		}
	}()

	conv := s.store.GetOrCreate(userID, sessionID)
	conv = s.store.Append(conv, s.newMessage(text, chat.SenderUser))

	crisisDetected := s.crisis.Detect(text)
	replyText := s.replies.Select(text, crisisDetected)

	conv = s.store.Append(conv, s.newMessage(replyText, chat.SenderAssistant))

	analysis := s.emotion.Analyze(text)

	actions := []string{}
	if crisisDetected {
		actions = append(actions, s.crisisActions...)
		log.Printf("[chat] crisis language detected user=%s session=%s terms=%v", userID, sessionID, s.matchedTerms(text))
	}

	log.Printf("[chat] processed message user=%s session=%s history=%d crisis=%t", userID, sessionID, len(conv.RecentMessages), crisisDetected)

	return chat.Response{
		Response:          replyText,
		EmotionalAnalysis: &analysis,
		SuggestedActions:  actions,
		CrisisDetected:    crisisDetected,
	}
}

// ProcessVoiceInput handles an audio message. Audio is not transcribed; a fixed
// placeholder stands in for the spoken text.
func (s *Service) ProcessVoiceInput(ctx context.Context, userID, sessionID string, audio []byte) (resp chat.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[voice] pipeline failure user=%s session=%s: %v", userID, sessionID, r)
			resp = s.fallbackResponse()
		}
	}()

	log.Printf("[voice] received %d bytes user=%s session=%s", len(audio), userID, sessionID)
	return s.ProcessMessage(ctx, userID, sessionID, s.voicePlaceholder)
}

// Sweep evicts conversations idle longer than the configured TTL as of now.
func (s *Service) Sweep(now time.Time) int {
	return s.store.Sweep(now, s.ttl)
}

// TTL returns the idle threshold used by Sweep.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) newMessage(content string, sender chat.Sender) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: s.now().UTC(),
	}
}

// matchedTerms lists the crisis terms found, when the detector can report them.
func (s *Service) matchedTerms(text string) []string {
	if m, ok := s.crisis.(interface{ Matches(string) []string }); ok {
		return m.Matches(text)
	}
	return nil
}

func (s *Service) fallbackResponse() chat.Response {
	return chat.Response{
		Response:         s.fallbackReply,
		SuggestedActions: []string{},
		CrisisDetected:   false,
	}
}
