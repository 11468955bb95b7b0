package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/fdg312/cityfix/internal/config"
)

// LocalAdminSubject is the subject used when AUTH_MODE=none.
const LocalAdminSubject = "local-admin"

// Middleware: middleware для проверки авторизации администратора
type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
	}
}

func (m *Middleware) disabled() bool {
	return m.config.AuthMode == config.AuthModeNone
}

// RequireAdmin rejects requests without a valid admin token.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled() {
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), LocalAdminSubject)))
			return
		}

		subject, err := m.authenticateHeader(r.Header.Get("Authorization"))
		if errors.Is(err, ErrNotAdmin) {
			writeErrorResponse(w, http.StatusForbidden, "forbidden", "Admin role required")
			return
		}
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), subject)))
	})
}

// OptionalAdmin validates the Bearer token only when it is provided.
// Without a token, requests pass through as anonymous citizens.
func (m *Middleware) OptionalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled() {
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), LocalAdminSubject)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := m.authenticateHeader(authHeader)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		log.Printf("auth token accepted: sub=%s method=%s path=%s", subject, r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), subject)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrInvalidToken
	}

	return m.service.VerifyJWT(parts[1])
}
