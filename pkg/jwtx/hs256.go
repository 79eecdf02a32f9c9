package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a session token and gives back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// MinSecretLength is the smallest signing secret accepted, in bytes. HS256
// secrets shorter than the hash output weaken the MAC.
const MinSecretLength = 32

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrAlgMismatch  = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")

	ErrSecretTooShort = errors.New("jwtx: signing secret too short")
)

// HS256Signer signs session tokens with a single process-wide symmetric
// secret. The secret is injected at construction; nothing here reads ambient
// configuration.
type HS256Signer struct {
	secret []byte
}

func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Alg() string { return "HS256" }

func (s *HS256Signer) Sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// HS256Verifier verifies tokens signed with the matching secret. Expiry is
// left to the caller (claims.ValidateExpiry) so middleware can decide leeway.
type HS256Verifier struct {
	secret []byte
	issuer string // empty means "don't care"
}

func NewVerifierHS256(secret []byte, issuer string) (*HS256Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &HS256Verifier{secret: secret, issuer: issuer}, nil
}

func (v *HS256Verifier) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)

	raw := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, raw, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	claims, err := claimsFromMap(raw)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// claimsFromMap normalizes raw claims into the typed form. The subject is
// canonicalized here, at the serialization boundary, so downstream equality
// checks against stored ids are reliable.
func claimsFromMap(raw jwt.MapClaims) (Claims, error) {
	subject, err := CanonicalSubject(raw["sub"])
	if err != nil {
		return Claims{}, err
	}

	c := Claims{Role: canonicalRole(raw["role"])}
	c.Subject = subject

	if iss, ok := raw["iss"].(string); ok {
		c.Issuer = iss
	}
	if jti, ok := raw["jti"].(string); ok {
		c.ID = jti
	}
	if exp, err := raw.GetExpirationTime(); err == nil {
		c.ExpiresAt = exp
	}
	// Session tokens always carry an expiry; a token without one would
	// never age out of ValidateExpiry.
	if c.ExpiresAt == nil {
		return Claims{}, ErrInvalidClaim
	}
	if nbf, err := raw.GetNotBefore(); err == nil {
		c.NotBefore = nbf
	}
	if iat, err := raw.GetIssuedAt(); err == nil {
		c.IssuedAt = iat
	}

	return c, nil
}
