package handler

import (
	"net/http"

	"jobshop/internal/model"
	"jobshop/internal/service"

	"github.com/rs/zerolog"
)

// AuthHandler handles login.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("handler", "auth").Logger(),
	}
}

// Login handles POST /auth/login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"token": token})
}
