package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// IdentityMiddleware resolves the caller identity used for rate limiting and
// the violation ledger. This is attribution, not authentication: an invalid
// credential falls through to the next source instead of rejecting the request.
//
// Resolution order: JWT bearer subject, then X-API-Key, then client IP.
type IdentityMiddleware struct {
	jwtSecret []byte
	logger    *zap.Logger
}

// NewIdentityMiddleware creates the identity resolver. An empty secret
// disables JWT resolution entirely.
func NewIdentityMiddleware(jwtSecret string, logger *zap.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{jwtSecret: []byte(jwtSecret), logger: logger}
}

// ResolveIdentity attaches the caller identity and its source to the request
// context
func (m *IdentityMiddleware) ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, source := m.resolve(r)
		ctx := WithIdentity(r.Context(), identity)
		ctx = WithIdentitySource(ctx, source)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *IdentityMiddleware) resolve(r *http.Request) (string, IdentitySource) {
	if len(m.jwtSecret) > 0 {
		if sub := m.subjectFromBearer(r.Header.Get("Authorization")); sub != "" {
			return "user:" + sub, IdentitySourceToken
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		// identity must be stable but never echo the raw key
		digest := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(digest[:6]), IdentitySourceAPIKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host, IdentitySourceIP
}

// subjectFromBearer extracts the sub claim from a valid HMAC-signed token.
// Returns empty on any parse or signature failure.
func (m *IdentityMiddleware) subjectFromBearer(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		m.logger.Debug("bearer token rejected", zap.Error(err))
		return ""
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return ""
	}
	return sub
}
