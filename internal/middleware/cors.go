package middleware

import "net/http"

// CORSMiddleware lets the status dashboard, served from another origin, call
// the alert and RCA APIs from the browser.
type CORSMiddleware struct {
	allowed  map[string]struct{}
	allowAll bool
}

// NewCORSMiddleware restricts cross-origin callers to the given origins.
// With no arguments, or with "*" among them, every origin is allowed.
func NewCORSMiddleware(allowedOrigins ...string) *CORSMiddleware {
	c := &CORSMiddleware{
		allowed:  make(map[string]struct{}, len(allowedOrigins)),
		allowAll: len(allowedOrigins) == 0,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			c.allowAll = true
			continue
		}
		c.allowed[origin] = struct{}{}
	}
	return c
}

// Wrap adds CORS headers and answers preflight requests. It must sit outside
// the JWT middleware, which would otherwise reject the tokenless OPTIONS.
func (c *CORSMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && c.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) originAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.allowed[origin]
	return ok
}
