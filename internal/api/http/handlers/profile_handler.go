package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/service"
	"github.com/spec-kit/mentor-portal/internal/session"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

// ProfileHandler loads and saves the signed-in customer's profile.
type ProfileHandler struct {
	sessions  *session.Store
	customers *service.CustomerService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(sessions *session.Store, customers *service.CustomerService) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, customers: customers}
}

// Show handles GET /profile.
func (h *ProfileHandler) Show(c *fiber.Ctx) error {
	token, user, err := h.current()
	if err != nil {
		return err
	}
	profile, err := h.customers.GetProfile(c.UserContext(), token, user.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileView{View: "profile", Profile: profile})
}

// Update handles PUT /profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	token, user, err := h.current()
	if err != nil {
		return err
	}
	var req domain.Profile
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.customers.UpdateProfile(c.UserContext(), token, user.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileView{View: "profile", Profile: profile})
}

func (h *ProfileHandler) current() (string, *domain.User, error) {
	st := h.sessions.Snapshot()
	if st.Token == "" || st.User == nil || st.User.UserID == 0 {
		return "", nil, apperrors.NewUnauthorized("sign in again")
	}
	return st.Token, st.User, nil
}
