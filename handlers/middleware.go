package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/services"
)

type contextKey string

const subjectContextKey contextKey = "subject"

// SubjectFromContext returns the verified token subject of a request
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok
}

type AuthMiddleware struct {
	auth *services.MirrorAuth
}

func NewAuthMiddleware(auth *services.MirrorAuth) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// Auth requires a valid bearer token when the mirror has a secret. Browsers
// cannot set headers on websocket upgrades so a token query parameter is
// accepted too.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := bearerToken(r)
		if !ok {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		subject, err := m.auth.VerifyToken(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		authParts := strings.Split(authHeader, " ")
		if len(authParts) != 2 || authParts[0] != "Bearer" {
			return "", false
		}
		return authParts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// Logging logs every handled request with its status and duration
func Logging(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"url":      r.URL.Path,
				"status":   m.Code,
				"duration": m.Duration,
				"bytes":    m.Written,
			}).Debug("handled")
		})
	}
}
