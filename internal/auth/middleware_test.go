package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/domain"
)

func guardedApp(f *guardFixture, timeout time.Duration) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})
	mw := auth.NewGuardMiddleware(auth.NewGuard(f.sessions), nil, 0)
	app.Get("/dashboard", mw.Handle, func(c *fiber.Ctx) error {
		return c.SendString("dashboard")
	})
	return app
}

func TestGuardMiddlewareRedirectsAnonymous(t *testing.T) {
	f := newGuardFixture(t)

	resp, err := guardedApp(f, time.Second).Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestGuardMiddlewarePassesAuthenticated(t *testing.T) {
	f := newGuardFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	f.storeToken(t, f.gw.Issue("m@x.io"))

	resp, err := guardedApp(f, time.Second).Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuardMiddlewareRendersLoadingWhenContextEnds(t *testing.T) {
	f := newGuardFixture(t)
	f.gw.AddUser("m@x.io", "pw", domain.CustomerTypeMentor)
	f.storeToken(t, f.gw.Issue("m@x.io"))
	f.gw.AuthenticateGate = make(chan struct{})

	resp, err := guardedApp(f, 50*time.Millisecond).Test(httptest.NewRequest(http.MethodGet, "/dashboard?tab=1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Refresh"))

	var view dto.LoadingView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.True(t, view.Loading)
	assert.Equal(t, "/dashboard?tab=1", view.Path)
	assert.False(t, f.sessions.Snapshot().Loading)
}
