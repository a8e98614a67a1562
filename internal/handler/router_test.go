package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/haven/backend/internal/service/conversation"
)

func newTestRouter() (http.Handler, *conversation.Service) {
	svc := conversation.NewService(conversation.Config{})
	return NewRouter(svc, RouterConfig{AllowedOrigins: []string{"*"}, DefaultUserID: "guest"}), svc
}

func TestHealthReportsSessionCount(t *testing.T) {
	router, svc := newTestRouter()
	svc.Store().GetOrCreate("u1", "s1")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Sessions)
}

func TestChatRouteMounted(t *testing.T) {
	router, svc := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hello","sessionId":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	transcript, err := svc.Store().Transcript("guest", "s1")
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

func TestPreflightShortCircuits(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
}
