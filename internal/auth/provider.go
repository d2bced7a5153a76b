package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

var authLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

var ErrNoUser = errors.New("no user ID in context")

// Provider resolves the identity behind a request.
type Provider interface {
	// Middleware attaches the user ID to the request context when the
	// credentials are valid. It never rejects a request on its own.
	Middleware() func(http.Handler) http.Handler

	UserID(r *http.Request) (model.UserID, error)
}

// RequireUser rejects requests that reach it without an identity.
func RequireUser(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := p.UserID(r); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthorized access attempt")
				http.Error(w, config.ErrUnauthorized, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticProvider grants the same identity to every request. It backs
// deployments with authentication disabled.
type StaticProvider struct {
	User model.UserID
}

func (p StaticProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.User)))
		})
	}
}

func (p StaticProvider) UserID(r *http.Request) (model.UserID, error) {
	return userFromRequest(r)
}

func userFromRequest(r *http.Request) (model.UserID, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}
