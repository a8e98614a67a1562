package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/haven/backend/internal/handler/identity"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler serves text and voice turns over a single websocket.
type WebSocketHandler struct {
	processor  Processor
	identities identity.Resolver
	maxBytes   int64
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(processor Processor, identities identity.Resolver, maxBytes int64) *WebSocketHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &WebSocketHandler{
		processor:  processor,
		identities: identities,
		maxBytes:   maxBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// AudioMessage carries one chunk of audio; chunks accumulate until IsFinal.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	userID    string
	sessionID string
	format    string
	buffer    bytes.Buffer
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID, sessionID := h.identities.Resolve(query.Get("userId"), query.Get("sessionId"))
	state := &connectionState{userID: userID, sessionID: sessionID}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection user=%s session=%s", userID, sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// JSON framing inflates base64 audio, so leave headroom over the raw cap.
	conn.SetReadLimit(h.maxBytes*2 + 4096)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, state, "connected", map[string]string{"userId": userID, "sessionId": sessionID})

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch kind {
		case websocket.BinaryMessage:
			h.appendAudio(ctx, conn, state, AudioMessage{AudioData: payload, IsFinal: true})
		case websocket.TextMessage:
			h.handleMessage(ctx, conn, state, payload)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, payload []byte) {
	var msg inboundMessage
	if err := sonic.ConfigStd.Unmarshal(payload, &msg); err != nil {
		h.sendError(conn, state, "invalid message")
		return
	}

	switch msg.Type {
	case "text":
		var text TextMessage
		if err := sonic.ConfigStd.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, state, "invalid text payload")
			return
		}
		if strings.TrimSpace(text.Text) == "" {
			h.sendError(conn, state, "text is required")
			return
		}
		resp := h.processor.ProcessMessage(ctx, state.userID, state.sessionID, text.Text)
		h.send(conn, state, "response", resp)
	case "audio":
		var audio AudioMessage
		if err := sonic.ConfigStd.Unmarshal(msg.Data, &audio); err != nil {
			h.sendError(conn, state, "invalid audio payload")
			return
		}
		h.appendAudio(ctx, conn, state, audio)
	default:
		h.sendError(conn, state, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) appendAudio(ctx context.Context, conn *websocket.Conn, state *connectionState, audio AudioMessage) {
	if int64(state.buffer.Len()+len(audio.AudioData)) > h.maxBytes {
		state.buffer.Reset()
		h.sendError(conn, state, "audio payload too large")
		return
	}

	state.buffer.Write(audio.AudioData)
	if audio.Format != "" {
		state.format = audio.Format
	}
	if !audio.IsFinal {
		return
	}

	data := append([]byte(nil), state.buffer.Bytes()...)
	state.buffer.Reset()
	if len(data) == 0 {
		h.sendError(conn, state, "audio payload is required")
		return
	}

	log.Printf("[ws] processing audio session=%s format=%s bytes=%d", state.sessionID, state.format, len(data))
	resp := h.processor.ProcessVoiceInput(ctx, state.userID, state.sessionID, data)
	h.send(conn, state, "response", resp)
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, state *connectionState, kind string, data interface{}) {
	payload, err := sonic.ConfigStd.Marshal(outgoingMessage{
		Type:      kind,
		SessionID: state.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("[ws] failed to encode %s message: %v", kind, err)
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("[ws] failed to write %s message: %v", kind, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, state *connectionState, message string) {
	h.send(conn, state, "error", map[string]string{"message": message})
}
