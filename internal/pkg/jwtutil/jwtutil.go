package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed token")

// TokenInfo is what the client can read out of a stored access token.
// The signing key lives on the server, so claims are decoded without
// signature verification and used for display and expiry checks only.
type TokenInfo struct {
	UserID    int64
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (i *TokenInfo) Expired() bool {
	return !i.ExpiresAt.IsZero() && time.Now().After(i.ExpiresAt)
}

// Inspect decodes the registered claims of a bearer token.
func Inspect(raw string) (*TokenInfo, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	info := &TokenInfo{}
	if v, ok := claims["user_id"].(float64); ok {
		info.UserID = int64(v)
	}
	if v, ok := claims["token_type"].(string); ok {
		info.TokenType = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	return info, nil
}
