package auth

import (
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"

	"github.com/debemdeboas/archive-ledger/internal/model"
)

const clerkSessionCookie = "__session"

// ClerkAuthProvider accepts Clerk session tokens from the Authorization
// header or the __session cookie. The session subject becomes the user ID.
type ClerkAuthProvider struct {
	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(clerkSessionCookie)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) Middleware() func(http.Handler) http.Handler {
	withClaims := clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
	return func(next http.Handler) http.Handler {
		return withClaims(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok && claims.Subject != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), model.UserID(claims.Subject)))
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (c *ClerkAuthProvider) UserID(r *http.Request) (model.UserID, error) {
	if userID, err := userFromRequest(r); err == nil {
		return userID, nil
	}
	if _, ok := clerk.SessionClaimsFromContext(r.Context()); !ok {
		return "", errors.New("failed to get session claims from context")
	}
	return "", ErrNoUser
}
