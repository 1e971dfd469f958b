package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("wrapped domain error is unwrapped", func(t *testing.T) {
		inner := NewUnauthorized("invalid token")
		got := ToDomainError(fmt.Errorf("validate: %w", inner))
		assert.Equal(t, CodeUnauthorized, got.Code)
		assert.Equal(t, http.StatusUnauthorized, got.HTTPStatus)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := ToDomainError(errors.New("boom"))
		assert.Equal(t, CodeInternal, got.Code)
		assert.Equal(t, "internal error", got.Message)
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "email taken", Message(NewDomainError(CodeRegisterFailed, "email taken", http.StatusConflict, nil), "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("dial tcp: refused"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
}

func TestDomainErrorString(t *testing.T) {
	err := Wrap(CodeLoginFailed, "could not log in", http.StatusBadGateway, errors.New("eof"))
	assert.Equal(t, "could not log in: eof", err.Error())
	assert.ErrorIs(t, err, err.Err)
}

func TestToDomainErrorFromFiber(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusBadRequest, "invalid payload"))
	assert.Equal(t, "BAD_REQUEST", got.Code)
	assert.Equal(t, "invalid payload", got.Message)
	assert.Equal(t, http.StatusBadRequest, got.HTTPStatus)
}

func TestToDomainErrorDeadline(t *testing.T) {
	wrapped := Wrap(CodeProfileFailed, "could not load profile", http.StatusBadGateway,
		fmt.Errorf("GET /mmc/customers/7: %w", context.DeadlineExceeded))

	got := ToDomainError(wrapped)
	assert.Equal(t, CodeTimeout, got.Code)
	assert.Equal(t, http.StatusGatewayTimeout, got.HTTPStatus)
	assert.ErrorIs(t, got, context.DeadlineExceeded)

	assert.Equal(t, CodeTimeout, ToDomainError(context.DeadlineExceeded).Code)
}
