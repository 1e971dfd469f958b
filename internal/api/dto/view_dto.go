package dto

import "github.com/spec-kit/mentor-portal/internal/domain"

// SessionView is the redacted session snapshot the portal exposes.
type SessionView struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	HasToken        bool         `json:"hasToken"`
	User            *domain.User `json:"user,omitempty"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
}

// FormView backs the login and register screens.
type FormView struct {
	View    string `json:"view"`
	Email   string `json:"email,omitempty"`
	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

// DashboardView backs the dashboard screen.
type DashboardView struct {
	View string       `json:"view"`
	User *domain.User `json:"user,omitempty"`
}

// ProfileView backs the profile editor.
type ProfileView struct {
	View    string          `json:"view"`
	Profile *domain.Profile `json:"profile"`
}

// LoadingView is rendered while the route guard has not settled.
type LoadingView struct {
	View    string `json:"view"`
	Loading bool   `json:"loading"`
	Path    string `json:"path"`
}
