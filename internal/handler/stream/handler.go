package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haven/backend/internal/handler/identity"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// Processor runs the conversation pipeline for one text message.
type Processor interface {
	ProcessMessage(ctx context.Context, userID, sessionID, text string) chat.Response
}

// Handler delivers a processed message as Server-Sent Events.
type Handler struct {
	processor  Processor
	identities identity.Resolver
}

// New creates a new stream handler
func New(processor Processor, identities identity.Resolver) *Handler {
	return &Handler{
		processor:  processor,
		identities: identities,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	UserID           string   `json:"userId,omitempty"`
	SessionID        string   `json:"sessionId,omitempty"`
	Content          string   `json:"content,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	CrisisDetected   bool     `json:"crisisDetected,omitempty"`
	Finished         bool     `json:"finished,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	message := query.Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	userID, sessionID := h.identities.Resolve(query.Get("userId"), query.Get("sessionId"))
	if err := h.HandleStreamRequest(r.Context(), w, userID, sessionID, message); err != nil {
		log.Printf("[stream] error handling request: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
	}
}

// HandleStreamRequest processes one message and emits start, response, analysis and end events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, userID, sessionID, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEEvent(w, flusher, "start", StreamResponse{UserID: userID, SessionID: sessionID})

	resp := h.processor.ProcessMessage(ctx, userID, sessionID, message)

	utils.SendSSEEvent(w, flusher, "response", StreamResponse{
		SessionID:        sessionID,
		Content:          resp.Response,
		SuggestedActions: resp.SuggestedActions,
		CrisisDetected:   resp.CrisisDetected,
	})

	if resp.EmotionalAnalysis != nil {
		utils.SendSSEEvent(w, flusher, "analysis", resp.EmotionalAnalysis)
	}

	utils.SendSSEEvent(w, flusher, "end", StreamResponse{SessionID: sessionID, Finished: true})

	log.Printf("[stream] completed response for user=%s session=%s", userID, sessionID)
	return nil
}
