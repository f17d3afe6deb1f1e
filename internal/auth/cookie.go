package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// DefaultMaxAge is how long a session cookie stays valid.
const DefaultMaxAge = 14 * 24 * time.Hour

// sessionClaims is the client-held session state.
type sessionClaims struct {
	SessionID string `json:"sid"`
	UserName  string `json:"user_name,omitempty"`
	jwt.RegisteredClaims
}

// CookieCodec signs and verifies the session cookie (HS256 JWT).
type CookieCodec struct {
	secret []byte
	maxAge time.Duration
	secure bool
}

// NewCookieCodec creates a codec. secure marks cookies HTTPS-only.
func NewCookieCodec(secret string, maxAge time.Duration, secure bool) *CookieCodec {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CookieCodec{secret: []byte(secret), maxAge: maxAge, secure: secure}
}

// Write sets the session cookie.
func (c *CookieCodec) Write(w http.ResponseWriter, sid, userName string) error {
	now := time.Now()
	claims := &sessionClaims{
		SessionID: sid,
		UserName:  userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session id and cached user name from the request cookie.
// A missing, tampered or expired cookie reads as anonymous (ok == false).
func (c *CookieCodec) Read(r *http.Request) (sid, userName string, ok bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", "", false
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", "", false
	}
	return claims.SessionID, claims.UserName, true
}

// Clear expires the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
