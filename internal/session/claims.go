package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the client can learn from its own token. The signature is not
// verified; the server remains the authority on whether the token is valid.
type Identity struct {
	UserID    string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the token has passed its expiry at now.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes the claims of a JWT access token.
func Inspect(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithJSONNumber())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	id := &Identity{}
	if v, ok := claims["user_id"]; ok {
		id.UserID = claimString(v)
	} else if sub, err := claims.GetSubject(); err == nil {
		id.UserID = sub
	}
	if v, ok := claims["token_type"].(string); ok {
		id.TokenType = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
