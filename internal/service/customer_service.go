package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/gateway"
	apperrors "github.com/spec-kit/mentor-portal/pkg/util/errorutil"
)

const (
	MsgProfileLoadFailed = "could not load profile"
	MsgProfileSaveFailed = "could not save profile"
)

// CustomerService reads and writes the customer profile behind /mmc/customers.
type CustomerService struct {
	gw Gateway
}

// NewCustomerService builds the service.
func NewCustomerService(gw Gateway) *CustomerService {
	return &CustomerService{gw: gw}
}

func customerPath(userID int64) string {
	return fmt.Sprintf("/mmc/customers/%d", userID)
}

// GetProfile loads the profile of userID.
func (s *CustomerService) GetProfile(ctx context.Context, token string, userID int64) (*domain.Profile, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("user id required", nil)
	}
	var profile domain.Profile
	if err := s.gw.Get(ctx, customerPath(userID), gateway.Bearer(token), &profile); err != nil {
		return nil, upstreamError(apperrors.CodeProfileFailed, MsgProfileLoadFailed, err)
	}
	return &profile, nil
}

// UpdateProfile replaces the profile of userID and returns the stored record.
func (s *CustomerService) UpdateProfile(ctx context.Context, token string, userID int64, profile domain.Profile) (*domain.Profile, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("user id required", nil)
	}
	if profile.Name == "" {
		return nil, apperrors.NewValidationError("name required", map[string]any{"field": "name"})
	}
	if profile.Age < 0 {
		return nil, apperrors.NewValidationError("age must not be negative", map[string]any{"field": "age"})
	}
	profile.UserID = userID

	var saved domain.Profile
	if err := s.gw.Put(ctx, customerPath(userID), profile, gateway.Bearer(token), &saved); err != nil {
		return nil, upstreamError(apperrors.CodeProfileFailed, MsgProfileSaveFailed, err)
	}
	if saved.UserID == 0 {
		saved = profile
	}
	return &saved, nil
}
