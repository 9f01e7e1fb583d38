package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/leca/ourstory/internal/auth"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookie is the name of the HTTP-only cookie carrying the token.
const SessionCookie = "token"

// SessionVerifier validates a session token.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.Claims, error)
}

// TokenFromRequest returns the bearer token if present, else the session
// cookie value, else "".
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession returns middleware that rejects requests without a valid
// session token and stores the claims in the request context.
func RequireSession(v SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.VerifySession(r.Context(), TokenFromRequest(r))
			if err != nil {
				if Status(err) == http.StatusUnauthorized {
					Unauthorized(w)
					return
				}
				WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the claims stored by RequireSession, or nil.
func GetSession(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(sessionKey).(*auth.Claims)
	return c
}
