package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, c *CORSMiddleware, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/alerts", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	w := corsRequest(t, NewCORSMiddleware(), http.MethodGet, "https://dashboard.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, caches must key on Origin", got)
	}
}

func TestCORSRestrictsToConfiguredOrigins(t *testing.T) {
	c := NewCORSMiddleware("https://dashboard.example.com")

	allowed := corsRequest(t, c, http.MethodGet, "https://dashboard.example.com")
	if allowed.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("configured origin should receive CORS headers")
	}

	denied := corsRequest(t, c, http.MethodGet, "https://evil.example.com")
	if denied.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not receive CORS headers")
	}
	if denied.Code != http.StatusOK {
		t.Errorf("status = %d, denial only withholds headers", denied.Code)
	}
}

func TestCORSAnswersPreflight(t *testing.T) {
	w := corsRequest(t, NewCORSMiddleware(), http.MethodOptions, "https://dashboard.example.com")

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight response missing allowed methods")
	}
}

func TestCORSWildcardEntry(t *testing.T) {
	c := NewCORSMiddleware("*")
	w := corsRequest(t, c, http.MethodGet, "https://anywhere.example.com")
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error(`"*" entry should allow every origin`)
	}
}

func TestCORSNoOriginHeader(t *testing.T) {
	w := corsRequest(t, NewCORSMiddleware(), http.MethodGet, "")
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("same-origin requests should pass through untouched")
	}
}
