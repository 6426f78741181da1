package server

import (
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"myspy/internal/domain"
)

// AuthConfig drives the stub's session tokens. The core mission endpoints
// do not require a token; login issues one for collaborator layers that do.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    *log.Logger
}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c AuthConfig) ttl() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return 24 * time.Hour
}

type sessionClaims struct {
	jwt.RegisteredClaims
	ProfileType string `json:"profileType,omitempty"`
}

// IssueToken signs a session token for an authenticated user.
func (c AuthConfig) IssueToken(u domain.User, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl())),
		},
		ProfileType: u.ProfileType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.JWTSecret))
}

// VerifyToken parses a bearer token and returns the subject user id.
func (c AuthConfig) VerifyToken(raw string) (string, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Subject, nil
}
