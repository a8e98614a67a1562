package voice

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haven/backend/internal/handler/identity"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// DefaultMaxBytes caps a single voice upload.
const DefaultMaxBytes = 10 << 20

// Processor runs the conversation pipeline for text and voice input.
type Processor interface {
	ProcessMessage(ctx context.Context, userID, sessionID, text string) chat.Response
	ProcessVoiceInput(ctx context.Context, userID, sessionID string, audio []byte) chat.Response
}

// Handler 语音输入的HTTP处理器
type Handler struct {
	processor  Processor
	identities identity.Resolver
	maxBytes   int64
}

// New 创建语音处理器
func New(processor Processor, identities identity.Resolver, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{
		processor:  processor,
		identities: identities,
		maxBytes:   maxBytes,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/voice", h.handleVoice)
	NewWebSocketHandler(h.processor, h.identities, h.maxBytes).RegisterWebSocketRoutes(r)
}

// handleVoice 接收原始音频并返回处理结果
func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "audio payload too large")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio payload")
		return
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio payload is required")
		return
	}

	query := r.URL.Query()
	userID, sessionID := h.identities.Resolve(query.Get("userId"), query.Get("sessionId"))

	log.Printf("[voice] upload user=%s session=%s bytes=%d type=%s", userID, sessionID, len(audio), r.Header.Get("Content-Type"))
	resp := h.processor.ProcessVoiceInput(r.Context(), userID, sessionID, audio)

	utils.RespondJSON(w, http.StatusOK, reply{Response: resp, UserID: userID, SessionID: sessionID})
}

type reply struct {
	chat.Response
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}
