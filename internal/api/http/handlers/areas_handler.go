package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// AreasHandler serves the scope-protected admin and client areas. Access
// control happens in the policy table; these handlers assume it already
// allowed the request.
type AreasHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAreasHandler constructs handler.
func NewAreasHandler(authService *service.AuthService, metrics *observability.Metrics) *AreasHandler {
	return &AreasHandler{auth: authService, metrics: metrics}
}

// AdminOverview handles GET /admin/overview.
func (h *AreasHandler) AdminOverview(c *fiber.Ctx) error {
	count, err := h.auth.CountUsers(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_count": count}})
}

// AdminMetrics handles GET /admin/metrics, exposing the in-process
// request and error counters.
func (h *AreasHandler) AdminMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"requests": h.metrics.RequestCounts(),
		"errors":   h.metrics.ErrorCounts(),
	}})
}

// ClientProfile handles GET /client/profile, returning the stored identity
// of the authenticated subject.
func (h *AreasHandler) ClientProfile(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	user, err := h.auth.GetUser(c.Context(), identity.SubjectID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
