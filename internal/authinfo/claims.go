// Package authinfo reads display details out of an API token. Signatures are
// not checked; nothing here is used for authorization.
package authinfo

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

type Claims struct {
	Email     string
	Subject   string
	ExpiresAt time.Time
}

// Parse decodes the payload of a JWT-shaped token. Opaque tokens yield ok=false.
func Parse(token string) (Claims, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return Claims{}, false
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, false
	}
	var payload struct {
		Email   string `json:"email"`
		Subject string `json:"sub"`
		Exp     int64  `json:"exp"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return Claims{}, false
	}
	c := Claims{
		Email:   strings.TrimSpace(payload.Email),
		Subject: strings.TrimSpace(payload.Subject),
	}
	if payload.Exp > 0 {
		c.ExpiresAt = time.Unix(payload.Exp, 0).UTC()
	}
	return c, true
}

// Account is the best label for who the token belongs to.
func (c Claims) Account() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
