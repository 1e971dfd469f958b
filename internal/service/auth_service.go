package service

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/api/dto"
	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/gateway"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

// Gateway paths consumed by the auth service.
const (
	PathRegister     = "/auth/users/register"
	PathLogin        = "/auth/users/login"
	PathAuthenticate = "/auth/users/authenticate"
	PathLogout       = "/auth/users/logout"
)

// Fallback messages used when the gateway gives no text of its own.
const (
	MsgRegisterFailed = "could not create account"
	MsgLoginFailed    = "could not log in"
	MsgInvalidToken   = "invalid token"
)

// Gateway is the subset of the HTTP client the services need.
type Gateway interface {
	Get(ctx context.Context, path string, headers http.Header, out any) error
	Post(ctx context.Context, path string, body any, headers http.Header, out any) error
	Put(ctx context.Context, path string, body any, headers http.Header, out any) error
}

// AuthService wraps the gateway's account endpoints. Every failure it returns
// is a *errorutil.DomainError whose Message can be shown to the user.
type AuthService struct {
	gw     Gateway
	logger *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(gw Gateway, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{gw: gw, logger: logger}
}

// Register creates an account and returns the issued token.
func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) (domain.AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return domain.AuthResult{}, apperrors.NewValidationError("email and password required", nil)
	}
	if !in.CustomerType.Valid() {
		return domain.AuthResult{}, apperrors.NewValidationError("customer type must be MENTOR or MENTEE", map[string]any{
			"customerType": in.CustomerType,
		})
	}

	req := dto.UserRegisterRequest{Email: email, Password: in.Password, CustomerType: in.CustomerType}
	var resp dto.AuthResponse
	if err := s.gw.Post(ctx, PathRegister, req, nil, &resp); err != nil {
		return domain.AuthResult{}, upstreamError(apperrors.CodeRegisterFailed, MsgRegisterFailed, err)
	}
	return s.checkAuthResponse(resp, apperrors.CodeRegisterFailed, MsgRegisterFailed)
}

// Login exchanges credentials for a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.AuthResult{}, apperrors.NewValidationError("email and password required", nil)
	}

	req := dto.UserLoginRequest{Email: email, Password: password}
	var resp dto.AuthResponse
	if err := s.gw.Post(ctx, PathLogin, req, nil, &resp); err != nil {
		return domain.AuthResult{}, upstreamError(apperrors.CodeLoginFailed, MsgLoginFailed, err)
	}
	return s.checkAuthResponse(resp, apperrors.CodeLoginFailed, MsgLoginFailed)
}

// Authenticate asks the gateway whether token is still accepted. Only the
// status matters; the body is ignored.
func (s *AuthService) Authenticate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, apperrors.NewDomainError(apperrors.CodeInvalidToken, MsgInvalidToken, http.StatusUnauthorized, nil)
	}
	if err := s.gw.Get(ctx, PathAuthenticate, gateway.Bearer(token), nil); err != nil {
		return false, apperrors.Wrap(apperrors.CodeInvalidToken, MsgInvalidToken, http.StatusUnauthorized, err)
	}
	return true, nil
}

// Logout tells the gateway to drop token. It never fails: a gateway outage
// must not keep the user signed in locally.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.gw.Post(ctx, PathLogout, nil, gateway.Bearer(token), nil); err != nil {
		s.logger.Warn("gateway logout failed; continuing with local logout", zap.Error(err))
	}
}

func (s *AuthService) checkAuthResponse(resp dto.AuthResponse, code, fallback string) (domain.AuthResult, error) {
	if resp.JWT == "" {
		s.logger.Warn("gateway auth response without token", zap.String("code", code))
		return domain.AuthResult{}, apperrors.NewDomainError(code, fallback, http.StatusBadGateway, nil)
	}
	return resp.ToDomain(), nil
}

// upstreamError turns a gateway failure into a user-facing DomainError,
// preferring the gateway's own message.
func upstreamError(code, fallback string, err error) error {
	status := http.StatusBadGateway
	message := fallback
	if gwErr, ok := gateway.AsError(err); ok {
		message = gwErr.UserMessage(fallback)
		// a 2xx whose body could not be decoded is still a bad upstream answer
		if gwErr.StatusCode >= http.StatusBadRequest {
			status = gwErr.StatusCode
		}
	}
	return apperrors.Wrap(code, message, status, err)
}
