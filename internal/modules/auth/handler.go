package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/platform/httpx"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const (
	msgLoginOK       = "Autenticação realizada com sucesso!"
	msgLoginFailed   = "Autenticação falhou."
	msgWrongPassword = "E-mail ou senha incorretos."
)

// Handler exposes the authentication endpoints.
type Handler struct {
	service Service
	limit   func(http.Handler) http.Handler
}

// NewHandler creates the auth handler. limit wraps the login route and may be nil.
func NewHandler(service Service, limit func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, limit: limit}
}

func (h *Handler) RegisterRoutes(router *chi.Mux) {
	router.Route("/auth", func(r chi.Router) {
		if h.limit != nil {
			r.With(h.limit).Post("/login", h.login)
			return
		}
		r.Post("/login", h.login)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	tok, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrNotAuthenticated) {
		response.Rejected(w, msgLoginFailed, msgWrongPassword)
		return
	}
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Write(w, http.StatusOK, response.Envelope{Success: true, Message: msgLoginOK, Data: tok})
}
