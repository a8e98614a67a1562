package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haven/backend/internal/handler/identity"
	"github.com/zhouzirui/haven/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/haven/backend/internal/service/chat"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// Processor runs the conversation pipeline for one text message.
type Processor interface {
	ProcessMessage(ctx context.Context, userID, sessionID, text string) chat.Response
}

// TranscriptReader exposes stored conversation history.
type TranscriptReader interface {
	Transcript(userID, sessionID string) ([]chat.Message, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	processor   Processor
	transcripts TranscriptReader
	identities  identity.Resolver
}

// New 创建聊天处理器
func New(processor Processor, transcripts TranscriptReader, identities identity.Resolver) *Handler {
	return &Handler{
		processor:   processor,
		transcripts: transcripts,
		identities:  identities,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/sessions/{userID}/{sessionID}/messages", h.handleTranscript)
}

// Reply is the wire shape of a processed message.
type Reply struct {
	chat.Response
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// handleChat 处理一条文本消息
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	userID, sessionID := h.identities.Resolve(payload.UserID, payload.SessionID)
	resp := h.processor.ProcessMessage(r.Context(), userID, sessionID, payload.Message)

	utils.RespondJSON(w, http.StatusOK, Reply{Response: resp, UserID: userID, SessionID: sessionID})
}

// handleTranscript 返回会话的最近消息
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.transcripts.Transcript(userID, sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"userId":    userID,
		"sessionId": sessionID,
		"messages":  messages,
	})
}
