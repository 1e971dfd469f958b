package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/events"
)

// SessionAuditService logs session transitions.
type SessionAuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSessionAuditService creates the service.
func NewSessionAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *SessionAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionAuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *SessionAuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionAuthenticated, a.handleAuthenticated)
	a.dispatcher.Subscribe(events.EventSessionCleared, a.handleCleared)
	a.dispatcher.Subscribe(events.EventSessionFailed, a.handleFailed)
	a.dispatcher.Subscribe(events.EventSessionErrorCleared, a.handleErrorCleared)
}

func (a *SessionAuditService) handleAuthenticated(_ context.Context, event events.Event) error {
	fields := a.fields(event)
	if event.User != nil {
		fields = append(fields,
			zap.Int64("user_id", event.User.UserID),
			zap.String("customer_type", string(event.User.CustomerType)),
		)
	}
	a.logger.Info("SessionAuthenticated", fields...)
	return nil
}

func (a *SessionAuditService) handleCleared(_ context.Context, event events.Event) error {
	a.logger.Info("SessionCleared", a.fields(event)...)
	return nil
}

func (a *SessionAuditService) handleFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("SessionFailed", append(a.fields(event), zap.String("message", event.Message))...)
	return nil
}

func (a *SessionAuditService) handleErrorCleared(_ context.Context, event events.Event) error {
	a.logger.Debug("SessionErrorCleared", a.fields(event)...)
	return nil
}

func (a *SessionAuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("cause", string(event.Cause)),
		zap.Time("at", event.Timestamp),
	}
}
