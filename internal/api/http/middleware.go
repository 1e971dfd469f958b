package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/observability"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

const headerRequestID = "X-Request-ID"

// RegisterMiddlewares attaches the portal middleware chain: request id,
// per-request deadline, error envelope, then request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestIDMiddleware())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(observability.RequestIDKey, id)
		c.Set(headerRequestID, id)
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders any returned error, or recovered panic, as
// {"error": {"code", "message", "details"?}, "requestId"}. Errors caused by
// the request deadline render as 504 REQUEST_TIMEOUT.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}

			requestID, _ := c.Locals(observability.RequestIDKey).(string)
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("path", c.Path()),
				zap.String("code", domainErr.Code),
				zap.Error(domainErr),
			}
			switch {
			case domainErr.Code == apperrors.CodeTimeout:
				logger.Warn("request timed out", fields...)
			case domainErr.HTTPStatus >= fiber.StatusInternalServerError:
				logger.Error("request failed", fields...)
			}

			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"error": body, "requestId": requestID})
			err = nil
		}()
		return c.Next()
	}
}
