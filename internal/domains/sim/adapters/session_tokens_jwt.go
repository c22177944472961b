package adapters

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenIssuer = "roleplay"

var ErrInvalidSessionToken = errors.New("invalid session token")

// JWTSessionTokens signs session ids into HS256 tokens for the session cookie.
type JWTSessionTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTSessionTokens uses secret when non-empty, otherwise a random
// per-process key (every cookie is invalidated on restart, which matches the
// in-memory session lifetime).
func NewJWTSessionTokens(secret string, ttl time.Duration) (JWTSessionTokens, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return JWTSessionTokens{}, fmt.Errorf("session tokens: generate key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return JWTSessionTokens{secret: key, ttl: ttl}, nil
}

func (t JWTSessionTokens) Issue(sessionID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionTokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("session tokens: sign: %w", err)
	}
	return signed, nil
}

func (t JWTSessionTokens) Parse(token string, now time.Time) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionTokenIssuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Subject, nil
}
