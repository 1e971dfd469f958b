package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
)

// GuardMiddleware puts a Guard in front of fiber routes.
type GuardMiddleware struct {
	guard   *Guard
	logger  *zap.Logger
	loading time.Duration
}

// NewGuardMiddleware constructs middleware. A positive loading duration caps
// how long a request waits for the session before the loading view is sent.
func NewGuardMiddleware(guard *Guard, logger *zap.Logger, loading time.Duration) *GuardMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardMiddleware{guard: guard, logger: logger, loading: loading}
}

// Handle mounts the guard for the lifetime of the request. If the request
// context ends before the session settles, the loading view is returned and
// the client is asked to come back.
func (m *GuardMiddleware) Handle(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if m.loading > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.loading)
		defer cancel()
	}

	mount := m.guard.Mount(ctx)
	phase := mount.Wait()

	switch phase {
	case PhaseRender:
		return c.Next()
	case PhaseRedirect:
		return c.Redirect(mount.RedirectTo(), http.StatusFound)
	default:
		mount.Unmount()
		m.logger.Debug("guard still loading", zap.String("path", c.Path()))
		c.Set("Refresh", "1")
		return c.Status(http.StatusAccepted).JSON(dto.LoadingView{View: "loading", Loading: true, Path: c.OriginalURL()})
	}
}
