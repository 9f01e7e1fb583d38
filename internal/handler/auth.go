package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/httprate"

	"github.com/leca/ourstory/internal/api"
	"github.com/leca/ourstory/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type meResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Login handles POST /api/auth/login. Every attempt counts against the
// client's limit, including malformed ones. The client is the connection's
// peer address; the router rewrites it from forwarding headers only when
// TRUST_PROXY is set.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	clientID, err := httprate.KeyByIP(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	allowed, err := h.Limiter.Allow(r.Context(), clientID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if !allowed {
		slog.Warn("login rate limited", "client", clientID)
		api.WriteError(w, r, auth.ErrRateLimited)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		api.BadRequest(w, "Username and password required")
		return
	}

	token, claims, err := h.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Config.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	api.WriteJSON(w, http.StatusOK, api.SuccessBody{Success: true, Token: token})
}

// Logout handles POST /api/auth/logout. It clears the cookie and, when
// revocation is enabled, denylists the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Revoke(r.Context(), api.TokenFromRequest(r)); err != nil {
		api.WriteError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     api.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Config.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	api.WriteJSON(w, http.StatusOK, api.SuccessBody{Success: true})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := api.GetSession(r.Context())
	if claims == nil {
		api.Unauthorized(w)
		return
	}
	api.WriteJSON(w, http.StatusOK, meResponse{UserID: claims.UserID, Username: claims.Username})
}
