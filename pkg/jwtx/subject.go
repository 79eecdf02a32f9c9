package jwtx

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalSubject normalizes a subject claim to one canonical string form.
//
// Token payloads produced by earlier versions of the site encoded the user id
// either as a plain string or as a structured identifier object (and the
// document store has its own ideas about id shapes), so every boundary
// crossing funnels through this one conversion before the id is compared
// against stored records.
func CanonicalSubject(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", ErrInvalidClaim
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return "", ErrInvalidClaim
		}
		return trimmed, nil
	case []byte:
		return CanonicalSubject(string(s))
	case float64:
		// JSON numbers decode as float64; ids are integral.
		return strconv.FormatInt(int64(s), 10), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case map[string]any:
		for _, key := range []string{"id", "_id", "$oid"} {
			if inner, ok := s[key]; ok {
				return CanonicalSubject(inner)
			}
		}
		return "", ErrInvalidClaim
	case fmt.Stringer:
		return CanonicalSubject(s.String())
	default:
		return "", ErrInvalidClaim
	}
}

// canonicalRole coerces the role claim to one of the known role strings.
// Older tokens carried the role as an is-admin boolean.
func canonicalRole(v any) string {
	switch r := v.(type) {
	case string:
		if r == RoleAdmin {
			return RoleAdmin
		}
		return RoleUser
	case bool:
		if r {
			return RoleAdmin
		}
		return RoleUser
	default:
		return RoleUser
	}
}
