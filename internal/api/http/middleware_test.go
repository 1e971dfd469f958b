package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

type envelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

func middlewareApp(timeout time.Duration) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, timeout)

	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		cause := fmt.Errorf("GET /mmc/customers/1: %w", c.UserContext().Err())
		return apperrors.Wrap(apperrors.CodeProfileFailed, "could not load profile", http.StatusBadGateway, cause)
	})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("name required", map[string]any{"field": "name"})
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	return app
}

func TestRequestDeadlineRendersTimeout(t *testing.T) {
	resp, err := middlewareApp(20*time.Millisecond).Test(httptest.NewRequest(http.MethodGet, "/slow", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeTimeout, body.Error.Code)
	assert.Equal(t, "request timed out", body.Error.Message)
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body.RequestID)
	_, parseErr := uuid.Parse(body.RequestID)
	assert.NoError(t, parseErr)
}

func TestErrorEnvelopeKeepsDetailsAndRequestID(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	req.Header.Set("X-Request-ID", id)

	resp, err := middlewareApp(time.Second).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, id, resp.Header.Get("X-Request-ID"))

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeValidation, body.Error.Code)
	assert.Equal(t, "name", body.Error.Details["field"])
	assert.Equal(t, id, body.RequestID)
}

func TestRequestIDNotAUUIDIsReplaced(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	req.Header.Set("X-Request-ID", "<script>")

	resp, err := middlewareApp(time.Second).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEqual(t, "<script>", resp.Header.Get("X-Request-ID"))
}

func TestPanicIsRecovered(t *testing.T) {
	resp, err := middlewareApp(time.Second).Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
}
