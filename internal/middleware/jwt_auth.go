package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rcapilot/rcapilot/internal/api"
)

const tokenIssuer = "rcapilot"

// UserClaims is the JWT payload for an authenticated operator
type UserClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTAuthConfig configures API authentication. The service runs with a
// single operator account taken from the environment.
type JWTAuthConfig struct {
	Enabled           bool
	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	JWTExpiryHours    int

	// SkipPaths bypass authentication: exact paths, or prefixes when the
	// entry ends in "*". The alert ingestion endpoint lives here so
	// monitoring sources can post without a login flow.
	SkipPaths []string
}

// JWTAuthMiddleware enforces bearer-token authentication on every route not
// on the skip list. The configuration is fixed at construction.
type JWTAuthMiddleware struct {
	config       *JWTAuthConfig
	skipExact    map[string]struct{}
	skipPrefixes []string
}

// ContextKey is the type for request-context keys set by this package
type ContextKey string

// UserContextKey holds the authenticated username
const UserContextKey ContextKey = "user"

// NewJWTAuthMiddleware creates the middleware, splitting the skip list into
// exact matches and wildcard prefixes up front.
func NewJWTAuthMiddleware(config *JWTAuthConfig) *JWTAuthMiddleware {
	m := &JWTAuthMiddleware{
		config:    config,
		skipExact: make(map[string]struct{}, len(config.SkipPaths)),
	}
	for _, path := range config.SkipPaths {
		if strings.HasSuffix(path, "*") {
			m.skipPrefixes = append(m.skipPrefixes, strings.TrimSuffix(path, "*"))
			continue
		}
		m.skipExact[path] = struct{}{}
	}
	return m
}

// HashPassword bcrypt-hashes the operator password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the bcrypt hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken issues a signed token for a logged-in operator
func (m *JWTAuthMiddleware) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(m.config.JWTExpiryHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.JWTSecret))
}

// ValidateToken parses and verifies a token, pinning the signing method and
// issuer so a token minted elsewhere never passes.
func (m *JWTAuthMiddleware) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{},
		func(*jwt.Token) (interface{}, error) { return []byte(m.config.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ValidateCredentials checks a login against the configured operator account.
// The username comparison is constant time.
func (m *JWTAuthMiddleware) ValidateCredentials(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.config.AdminUsername)) != 1 {
		return false
	}
	return CheckPassword(password, m.config.AdminPasswordHash)
}

// Wrap enforces authentication on next
func (m *JWTAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Enabled || m.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := bearerToken(r)
		if tokenString == "" {
			m.unauthorized(w, "Missing authentication token")
			return
		}

		claims, err := m.ValidateToken(tokenString)
		if err != nil {
			log.Printf("Rejected token from %s: %v", r.RemoteAddr, err)
			m.unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *JWTAuthMiddleware) skip(path string) bool {
	if _, ok := m.skipExact[path]; ok {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (m *JWTAuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="API"`)
	api.RespondError(w, http.StatusUnauthorized, message)
}

// GetUserFromContext returns the authenticated username, or "" outside the
// middleware.
func GetUserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(UserContextKey).(string)
	return user
}
