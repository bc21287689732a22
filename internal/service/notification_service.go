package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/mailer"
)

// NotificationService bridges domain events to email delivery. Delivery is
// fire-and-forget: a failed send is logged and swallowed, never surfaced to
// the operation that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	mail       mailer.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mail mailer.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, mail: mail, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleVerificationIssued)
	n.dispatcher.Subscribe(events.EventVerificationResent, n.handleVerificationIssued)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventEmailVerified, n.handleEmailVerified)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleVerificationIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EmailTokenPayload)
	if !ok {
		return nil
	}
	if err := n.mail.SendVerification(ctx, payload.Email, payload.Token); err != nil {
		n.logger.Error("verification email failed",
			zap.String("user_id", event.UserID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EmailTokenPayload)
	if !ok {
		return nil
	}
	if err := n.mail.SendPasswordReset(ctx, payload.Email, payload.Token); err != nil {
		n.logger.Error("password reset email failed",
			zap.String("user_id", event.UserID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleEmailVerified(_ context.Context, event events.Event) error {
	n.logger.Info("email verified", zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) handlePasswordChanged(_ context.Context, event events.Event) error {
	n.logger.Info("password changed", zap.String("user_id", event.UserID))
	return nil
}
