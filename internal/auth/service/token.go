package service

import (
	"fmt"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
)

// TokenService mints session bearer tokens after a fully verified login.
type TokenService struct {
	Signer    *jwtx.HS256Signer
	Issuer    string
	AccessTTL time.Duration
}

func (s *TokenService) ttl() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultSessionTokenTTL
}

// Issue signs a session token for the given user. Role defaults to the
// regular user role when empty.
func (s *TokenService) Issue(userID, role string) (domain.SessionToken, error) {
	if role == "" {
		role = jwtx.RoleUser
	}

	claims := jwtx.NewSessionClaims(userID, role, s.ttl(), s.Issuer, time.Now().UTC())
	signed, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return domain.SessionToken{
		Token:     signed,
		Role:      role,
		ExpiresIn: int64(s.ttl().Seconds()),
	}, nil
}
