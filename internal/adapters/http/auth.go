package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAuthenticator returns an Authenticator. With an empty secret every
// protected request is rejected.
func NewAuthenticator(secret, issuer string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue signs a token for userID.
func (a *Authenticator) Issue(userID string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth: no signing secret configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	return token.SignedString(a.secret)
}

// Verify parses a token and returns its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth: no signing secret configured")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return claims.Subject, nil
}

// Middleware requires a valid "Authorization: Bearer <token>" header and
// stores the subject for UserID.
func (a *Authenticator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return errUnauthorized(c, "missing bearer token")
		}
		sub, err := a.Verify(raw)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Debug("rejected token", "error", err)
			return errUnauthorized(c, "invalid token")
		}
		c.Locals(userIDKey, sub)
		return c.Next()
	}
}

// UserID returns the authenticated subject, or "" when none.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
