package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpi/internal/domain/auth"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
)

type Authenticator interface {
	Login(ctx context.Context, password string) (auth.Session, error)
	Logout(ctx context.Context, claims *auth.Claims)
}

type Handler struct {
	Auth Authenticator
}

func NewHandler(authenticator Authenticator) *Handler {
	return &Handler{Auth: authenticator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.With(middleware.RequireAdmin).Post("/logout", h.HandleLogout)
		r.With(middleware.RequireAdmin).Get("/session", h.HandleSession)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	session, err := h.Auth.Login(r.Context(), payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("admin login rejected", "requestId", reqID, "ip", middleware.ClientIP(r))
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
			return
		}
		slog.Error("admin login failed", "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}
	api.Success(w, session, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.GetAdmin(r.Context()); ok {
		h.Auth.Logout(r.Context(), claims)
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetAdmin(r.Context())
	resp := map[string]any{"role": claims.Role}
	if claims.ExpiresAt != nil {
		resp["expiresAt"] = claims.ExpiresAt.Time.UTC()
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}
