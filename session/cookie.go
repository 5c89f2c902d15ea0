package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/giygas/hospital-portal/entities"
)

// CookieName is the name of the session cookie.
const CookieName = "hp_session"

const issuer = "hospital-portal"

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// CookieCodec signs session ids into the session cookie and verifies them
// back. The cookie never carries the API token or any identity.
type CookieCodec struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewCookieCodec returns a codec signing with secret. secure sets the
// cookie's Secure attribute.
func NewCookieCodec(secret string, secure bool) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), secure: secure, now: time.Now}
}

// Encode builds the cookie for s. The token expires with the session.
func (c *CookieCodec) Encode(s entities.Session) (*http.Cookie, error) {
	if s.ID == "" {
		return nil, errors.New("session id is empty")
	}

	claims := jwt.RegisteredClaims{
		ID:       s.ID,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(c.now()),
	}
	if !s.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(s.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !s.ExpiresAt.IsZero() {
		cookie.Expires = s.ExpiresAt
	}
	return cookie, nil
}

// Decode returns the session id carried by r's cookie. A missing, tampered
// or expired cookie reports false.
func (c *CookieCodec) Decode(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return c.parse(cookie.Value)
}

func (c *CookieCodec) parse(value string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	if claims.Issuer != issuer || claims.ID == "" {
		return "", false
	}
	if claims.ExpiresAt != nil && !c.now().Before(claims.ExpiresAt.Time) {
		return "", false
	}
	return claims.ID, true
}

// Expired returns a cookie that deletes the session cookie.
func (c *CookieCodec) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
