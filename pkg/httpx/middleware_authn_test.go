package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var guardSecret = []byte("0123456789abcdef0123456789abcdef")

func guardedEcho(t *testing.T) (http.Handler, *jwtx.HS256Signer) {
	t.Helper()

	signer, err := jwtx.NewSignerHS256(guardSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(guardSecret, "")
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		WriteJSON(w, http.StatusOK, map[string]string{"id": id.ID, "role": id.Role})
	})

	return Chain(echo, AuthnMiddleware(verifier)), signer
}

func TestAuthnMiddlewareRejectsMissingHeader(t *testing.T) {
	h, _ := guardedEcho(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "no token provided")
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestAuthnMiddlewareRejectsNonBearerScheme(t *testing.T) {
	h, _ := guardedEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthnMiddlewareRejectsGarbageToken(t *testing.T) {
	h, _ := guardedEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthnMiddlewareRejectsExpiredToken(t *testing.T) {
	h, signer := guardedEcho(t)

	stale, err := signer.Sign(jwtx.NewSessionClaims(
		"user-1", jwtx.RoleUser, time.Minute, "", time.Now().UTC().Add(-time.Hour),
	))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// Expired and tampered tokens are indistinguishable to the caller.
	require.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthnMiddlewarePassesIdentityThrough(t *testing.T) {
	h, signer := guardedEcho(t)

	token, err := signer.Sign(jwtx.NewSessionClaims(
		"user-42", jwtx.RoleAdmin, time.Hour, "", time.Now().UTC(),
	))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":"user-42","role":"admin"}`, rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(guardSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(guardSecret, "")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Chain(ok, AuthnMiddleware(verifier), RequireAdmin())

	t.Run("admin role passes", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("a", jwtx.RoleAdmin, time.Hour, "", time.Now().UTC()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("user role is forbidden", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", jwtx.RoleUser, time.Hour, "", time.Now().UTC()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "admin access required")
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limited := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RateLimitByIP(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}),
	)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.7:52100"
		return req
	}

	for range 2 {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, newReq())
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, newReq())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client is unaffected.
	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "203.0.113.9:40000"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}
