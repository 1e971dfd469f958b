package dto

import "github.com/spec-kit/mentor-portal/internal/domain"

// UserRegisterRequest is the body of POST /auth/users/register, and of the
// portal's own register form.
type UserRegisterRequest struct {
	Email        string              `json:"email" form:"email"`
	Password     string              `json:"password" form:"password"`
	CustomerType domain.CustomerType `json:"customerType" form:"customerType"`
}

// UserLoginRequest is the body of POST /auth/users/login and of the login form.
type UserLoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthResponse is what the gateway returns from register and login.
type AuthResponse struct {
	UserID      int64               `json:"userId"`
	Username    string              `json:"username"`
	JWT         string              `json:"jwt"`
	Type        domain.CustomerType `json:"type"`
	Authorities []string            `json:"authorities"`
}

// ToDomain converts the wire shape.
func (r AuthResponse) ToDomain() domain.AuthResult {
	return domain.AuthResult{UserID: r.UserID, Username: r.Username, JWT: r.JWT, Type: r.Type}
}
