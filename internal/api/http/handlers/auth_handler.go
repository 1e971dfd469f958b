package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/session"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

// Portal paths the auth handler redirects between.
const (
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
)

// AuthHandler serves the login, register and logout flows.
type AuthHandler struct {
	sessions *session.Store
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *session.Store) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// LoginView handles GET /login. Opening the form drops any stale error.
func (h *AuthHandler) LoginView(c *fiber.Ctx) error {
	return h.formView(c, "login")
}

// RegisterView handles GET /register.
func (h *AuthHandler) RegisterView(c *fiber.Ctx) error {
	return h.formView(c, "register")
}

func (h *AuthHandler) formView(c *fiber.Ctx, view string) error {
	h.sessions.ClearError()
	st := h.sessions.Snapshot()
	return c.JSON(dto.FormView{View: view, Loading: st.Loading})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if err := h.rejectWhileBusy(); err != nil {
		return err
	}
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	err := h.sessions.Login(c.UserContext(), req.Email, req.Password)
	return h.afterSubmit(c, "login", req.Email, err)
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	if err := h.rejectWhileBusy(); err != nil {
		return err
	}
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	err := h.sessions.Register(c.UserContext(), domain.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		CustomerType: req.CustomerType,
	})
	return h.afterSubmit(c, "register", req.Email, err)
}

// Logout handles POST /logout. It always ends on the login page.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Logout(c.UserContext())
	return c.Redirect(PathLogin, http.StatusSeeOther)
}

// Session handles GET /session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return c.JSON(SessionView(h.sessions.Snapshot()))
}

// SessionView redacts a snapshot for display.
func SessionView(st session.State) dto.SessionView {
	return dto.SessionView{
		IsAuthenticated: st.IsAuthenticated,
		HasToken:        st.Token != "",
		User:            st.User,
		Loading:         st.Loading,
		Error:           st.Error,
	}
}

// rejectWhileBusy keeps a second submit from racing one already in flight.
func (h *AuthHandler) rejectWhileBusy() error {
	if !h.sessions.Snapshot().Loading {
		return nil
	}
	return apperrors.NewDomainError(apperrors.CodeBusy, "another request is in progress", http.StatusConflict, nil)
}

func (h *AuthHandler) afterSubmit(c *fiber.Ctx, view, email string, err error) error {
	if err == nil {
		return c.Redirect(PathDashboard, http.StatusSeeOther)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	st := h.sessions.Snapshot()
	return c.Status(http.StatusUnprocessableEntity).JSON(dto.FormView{
		View:    view,
		Email:   email,
		Error:   st.Error,
		Loading: st.Loading,
	})
}
