package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
	"github.com/spec-kit/mentor-portal/internal/session"
)

// DashboardHandler serves the landing view after sign-in.
type DashboardHandler struct {
	sessions *session.Store
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(sessions *session.Store) *DashboardHandler {
	return &DashboardHandler{sessions: sessions}
}

// Show handles GET /dashboard.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	return c.JSON(dto.DashboardView{View: "dashboard", User: h.sessions.Snapshot().User})
}
