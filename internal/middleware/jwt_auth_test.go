package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestJWT(t *testing.T, enabled bool, skipPaths ...string) *JWTAuthMiddleware {
	t.Helper()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:           enabled,
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
		JWTSecret:         "test-secret",
		JWTExpiryHours:    1,
		SkipPaths:         skipPaths,
	})
}

func authedStatus(t *testing.T, m *JWTAuthMiddleware, path, token string) int {
	t.Helper()
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

func TestSkipPaths(t *testing.T) {
	m := newTestJWT(t, true, "/health", "/api/alerts", "/auth/*")

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/alerts", http.StatusOK},
		{"/auth/login", http.StatusOK},
		{"/auth/verify", http.StatusOK},
		{"/api/groups", http.StatusUnauthorized},
		{"/api/rca", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := authedStatus(t, m, tt.path, ""); got != tt.want {
			t.Errorf("%s without token: status = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestDisabledAuthPassesThrough(t *testing.T) {
	m := newTestJWT(t, false)
	if got := authedStatus(t, m, "/api/groups", ""); got != http.StatusOK {
		t.Errorf("status = %d, disabled auth must not block", got)
	}
}

func TestValidTokenAdmitsRequest(t *testing.T) {
	m := newTestJWT(t, true)
	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if got := authedStatus(t, m, "/api/groups", token); got != http.StatusOK {
		t.Errorf("status = %d, want 200 with a valid token", got)
	}
}

func TestRejectsForeignIssuer(t *testing.T) {
	m := newTestJWT(t, true)

	// Correct secret, wrong issuer
	claims := UserClaims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := authedStatus(t, m, "/api/groups", foreign); got != http.StatusUnauthorized {
		t.Errorf("status = %d, tokens from another issuer must be rejected", got)
	}
}

func TestValidateCredentials(t *testing.T) {
	m := newTestJWT(t, true)

	if !m.ValidateCredentials("admin", "s3cret") {
		t.Error("correct credentials rejected")
	}
	if m.ValidateCredentials("admin", "wrong") {
		t.Error("wrong password accepted")
	}
	if m.ValidateCredentials("root", "s3cret") {
		t.Error("wrong username accepted")
	}
}
