package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/auth"
)

// AuthHandler handles the single public login endpoint.
type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger.Named("auth_handler")}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		ErrBadRequest(w, "username and password are required")
		return
	}

	token, _, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			ErrUnauthorized(w)
		case errors.Is(err, auth.ErrAccountLocked):
			ErrForbidden(w, "account is locked out, try again later")
		case errors.Is(err, auth.ErrUserDisabled):
			ErrForbidden(w, "account is disabled")
		default:
			h.logger.Error("login failed", zap.Error(err))
			ErrInternal(w)
		}
		return
	}

	Ok(w, loginResponse{Token: token})
}
