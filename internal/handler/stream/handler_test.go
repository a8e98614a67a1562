package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haven/backend/internal/handler/identity"
	"github.com/zhouzirui/haven/backend/internal/service/conversation"
)

func newRouter() *chi.Mux {
	svc := conversation.NewService(conversation.Config{})
	r := chi.NewRouter()
	New(svc, identity.Resolver{DefaultUserID: "guest"}).RegisterRoutes(r)
	return r
}

func TestStreamEmitsEventsInOrder(t *testing.T) {
	r := newRouter()

	q := url.Values{"message": {"I want to kill myself"}, "userId": {"u1"}, "sessionId": {"s1"}}
	req := httptest.NewRequest(http.MethodGet, "/chat/stream?"+q.Encode(), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	body := resp.Body.String()
	order := []string{"event: start", "event: response", "event: analysis", "event: end"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(body, marker)
		if idx <= last {
			t.Fatalf("expected %q after previous events in %s", marker, body)
		}
		last = idx
	}
	if !strings.Contains(body, `"crisisDetected":true`) || !strings.Contains(body, "988") {
		t.Fatalf("expected crisis payload in %s", body)
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	r := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/chat/stream", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

type plainWriter struct {
	header http.Header
}

func (p *plainWriter) Header() http.Header { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(int) {}

func TestHandleStreamRequestRequiresFlusher(t *testing.T) {
	h := New(conversation.NewService(conversation.Config{}), identity.Resolver{})

	err := h.HandleStreamRequest(context.Background(), &plainWriter{header: http.Header{}}, "u1", "s1", "hi")
	if err == nil {
		t.Fatal("expected error for writer without flush support")
	}
}
