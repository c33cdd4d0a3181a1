package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key"

func signedToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func resolveRequest(t *testing.T, m *IdentityMiddleware, mutate func(*http.Request)) (string, IdentitySource) {
	t.Helper()
	var identity string
	var source IdentitySource

	handler := m.ResolveIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity = GetIdentityFromContext(r.Context())
		source = GetIdentitySourceFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	if mutate != nil {
		mutate(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return identity, source
}

func TestResolveIdentity_BearerSubject(t *testing.T) {
	m := NewIdentityMiddleware(testSecret, zap.NewNop())

	identity, source := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "alice"))
	})

	assert.Equal(t, "user:alice", identity)
	assert.Equal(t, IdentitySourceToken, source)
}

func TestResolveIdentity_InvalidTokenFallsThrough(t *testing.T) {
	m := NewIdentityMiddleware(testSecret, zap.NewNop())

	t.Run("wrong signature", func(t *testing.T) {
		identity, source := resolveRequest(t, m, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret", "mallory"))
		})
		assert.Equal(t, "ip:203.0.113.7", identity)
		assert.Equal(t, IdentitySourceIP, source)
	})

	t.Run("garbage token", func(t *testing.T) {
		identity, _ := resolveRequest(t, m, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		})
		assert.Equal(t, "ip:203.0.113.7", identity)
	})

	t.Run("expired token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "alice",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		identity, _ := resolveRequest(t, m, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signed)
		})
		assert.Equal(t, "ip:203.0.113.7", identity)
	})
}

func TestResolveIdentity_APIKey(t *testing.T) {
	m := NewIdentityMiddleware(testSecret, zap.NewNop())

	identity, source := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("X-API-Key", "sk-something-secret")
	})

	assert.Equal(t, IdentitySourceAPIKey, source)
	assert.Contains(t, identity, "key:")
	assert.NotContains(t, identity, "sk-something-secret")

	// the same key always maps to the same identity
	again, _ := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("X-API-Key", "sk-something-secret")
	})
	assert.Equal(t, identity, again)

	// a different key maps elsewhere
	other, _ := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("X-API-Key", "sk-another-key")
	})
	assert.NotEqual(t, identity, other)
}

func TestResolveIdentity_TokenBeatsAPIKey(t *testing.T) {
	m := NewIdentityMiddleware(testSecret, zap.NewNop())

	identity, source := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "alice"))
		r.Header.Set("X-API-Key", "sk-key")
	})

	assert.Equal(t, "user:alice", identity)
	assert.Equal(t, IdentitySourceToken, source)
}

func TestResolveIdentity_IPFallback(t *testing.T) {
	m := NewIdentityMiddleware(testSecret, zap.NewNop())

	identity, source := resolveRequest(t, m, nil)
	assert.Equal(t, "ip:203.0.113.7", identity)
	assert.Equal(t, IdentitySourceIP, source)
}

func TestResolveIdentity_EmptySecretDisablesJWT(t *testing.T) {
	m := NewIdentityMiddleware("", zap.NewNop())

	identity, source := resolveRequest(t, m, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "alice"))
	})

	assert.Equal(t, "ip:203.0.113.7", identity)
	assert.Equal(t, IdentitySourceIP, source)
}
