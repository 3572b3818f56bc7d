package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMintsUUID(t *testing.T) {
	var seenInContext string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/alerts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("response missing X-Request-ID")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("minted ID %q is not a UUID: %v", id, err)
	}
	if seenInContext != id {
		t.Errorf("context ID %q != response ID %q", seenInContext, id)
	}
}

func TestRequestIDReusesPipelineID(t *testing.T) {
	const pipelineID = "prometheus-webhook-delivery-42"
	var seenInContext string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/alerts", nil)
	req.Header.Set(RequestIDHeader, pipelineID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != pipelineID {
		t.Errorf("response ID = %q, want the pipeline's own %q", got, pipelineID)
	}
	if seenInContext != pipelineID {
		t.Errorf("context ID = %q, want %q", seenInContext, pipelineID)
	}
}

func TestRequestIDsAreDistinct(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/groups", nil))
		id := w.Header().Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDOutsideMiddleware(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("id = %q, want empty outside the middleware", id)
	}
}
