package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the backend keeps its session token in
const SessionCookie = "jwt"

var (
	ErrNotLoggedIn    = errors.New("services: not logged in")
	ErrSessionExpired = errors.New("services: session expired")
)

// Session reads the backend session out of a cookie jar. The backend signs
// the token; the client only inspects its claims and never verifies it.
type Session struct {
	jar     http.CookieJar
	baseURL *url.URL
}

func NewSession(jar http.CookieJar, baseURL *url.URL) *Session {
	return &Session{jar: jar, baseURL: baseURL}
}

// Token returns the raw session token, if the backend has set one
func (s *Session) Token() (string, error) {
	for _, c := range s.jar.Cookies(s.baseURL) {
		if c.Name == SessionCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", ErrNotLoggedIn
}

// Restore puts a previously saved token back into the jar
func (s *Session) Restore(token string) {
	if token == "" {
		return
	}
	s.jar.SetCookies(s.baseURL, []*http.Cookie{{
		Name:  SessionCookie,
		Value: token,
		Path:  "/",
	}})
}

// UserID extracts the participant id from the session token
func (s *Session) UserID() (string, error) {
	token, err := s.Token()
	if err != nil {
		return "", err
	}
	return UserIDFromToken(token)
}

// UserIDFromToken reads the "id" (or "sub") claim of an unverified token
func UserIDFromToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return "", ErrSessionExpired
	}

	if id, ok := claims["id"].(string); ok && id != "" {
		return id, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errors.New("services: session token has no user id")
}

// MirrorAuth issues and checks the bearer tokens of the local mirror
type MirrorAuth struct {
	secret []byte
}

func NewMirrorAuth(secret string) *MirrorAuth {
	return &MirrorAuth{secret: []byte(secret)}
}

// Enabled reports whether the mirror requires a token at all
func (a *MirrorAuth) Enabled() bool {
	return len(a.secret) > 0
}

// CreateToken generates a token for subject valid for ttl
func (a *MirrorAuth) CreateToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("services: mirror secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken verifies a token and returns its subject
func (a *MirrorAuth) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}
