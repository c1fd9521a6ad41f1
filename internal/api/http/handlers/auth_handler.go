package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// CookieSettings carries the transport attributes of the token cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler exposes login, logout and identity introspection.
type AuthHandler struct {
	auth   *service.AuthService
	cookie CookieSettings
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cookie}
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	_, token, _, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return apperrors.NewUnauthorized(err.Error())
		case errors.Is(err, service.ErrTooManyLoginAttempts):
			return apperrors.NewTooManyRequests(err.Error())
		}
		return apperrors.MapError(err)
	}

	ttl := h.auth.TokenManager().TTL()
	auth.SetTokenCookie(c, h.cookie.Name, token, ttl, h.cookie.Secure)

	return c.JSON(dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// Logout handles POST /logout. Clearing the cookie is purely client-side;
// an already-issued token stays valid until it expires.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.ClearTokenCookie(c, h.cookie.Name, h.cookie.Secure)
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(dto.MeResponse{
		SubjectID: identity.SubjectID,
		Roles:     identity.ScopeNames(),
	})
}
