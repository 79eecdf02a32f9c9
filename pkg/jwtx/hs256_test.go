package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestPair(t *testing.T, issuer string) (*HS256Signer, *HS256Verifier) {
	t.Helper()

	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := NewVerifierHS256(testSecret, issuer)
	require.NoError(t, err)
	return signer, verifier
}

func TestRejectsShortSecret(t *testing.T) {
	_, err := NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, ErrSecretTooShort)

	_, err = NewVerifierHS256([]byte("short"), "")
	require.ErrorIs(t, err, ErrSecretTooShort)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, verifier := newTestPair(t, "folio-auth")

	claims := NewSessionClaims("01JD3X3E4Y5B6N7Q8R9S0T1V2W", RoleAdmin, time.Hour, "folio-auth", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01JD3X3E4Y5B6N7Q8R9S0T1V2W", got.Subject)
	require.Equal(t, RoleAdmin, got.Role)
	require.True(t, got.IsAdmin())
	require.NoError(t, got.ValidateExpiry())

	// Verification mutates nothing: a second pass yields the same result.
	again, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, got.Subject, again.Subject)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	signer, verifier := newTestPair(t, "")

	token, err := signer.Sign(NewSessionClaims("user-1", RoleUser, time.Hour, "", time.Now().UTC()))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = verifier.Verify(tampered)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, _ := newTestPair(t, "")
	otherVerifier, err := NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), "")
	require.NoError(t, err)

	token, err := signer.Sign(NewSessionClaims("user-1", RoleUser, time.Hour, "", time.Now().UTC()))
	require.NoError(t, err)

	_, err = otherVerifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	_, verifier := newTestPair(t, "")

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(token)
		require.ErrorIs(t, err, ErrMalformed, "token=%q", token)
	}
}

func TestExpiredTokenFailsValidation(t *testing.T) {
	signer, verifier := newTestPair(t, "")

	issued := time.Now().UTC().Add(-2 * time.Hour)
	token, err := signer.Sign(NewSessionClaims("user-1", RoleUser, time.Hour, "", issued))
	require.NoError(t, err)

	// Signature still checks out; expiry is a separate, repeatable failure.
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.ErrorIs(t, claims.ValidateExpiry(), ErrExpired)
	require.ErrorIs(t, claims.ValidateExpiry(), ErrExpired)
}

func TestVerifyEnforcesIssuer(t *testing.T) {
	signer, verifier := newTestPair(t, "folio-auth")

	token, err := signer.Sign(NewSessionClaims("user-1", RoleUser, time.Hour, "someone-else", time.Now().UTC()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyNormalizesStructuredSubject(t *testing.T) {
	_, verifier := newTestPair(t, "")

	// Hand-build a token whose sub claim is a structured identifier object.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  map[string]any{"$oid": "64b8f0c2a1d2e3f405060708"},
		"role": true, // legacy is-admin boolean form
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString(testSecret)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "64b8f0c2a1d2e3f405060708", claims.Subject)
	require.Equal(t, RoleAdmin, claims.Role)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	_, verifier := newTestPair(t, "")

	// A correctly signed token without exp must not become a forever
	// session.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": "user",
	})
	token, err := raw.SignedString(testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidClaim)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	_, verifier := newTestPair(t, "")

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "user",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString(testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidClaim)
}
