package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// UserService handles profile reads and mutations. Authorization decisions
// happen in the HTTP layer; this service assumes the caller was allowed.
type UserService struct {
	users      repository.UserRepository
	accounts   *AccountService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, accounts *AccountService, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	return &UserService{users: users, accounts: accounts, dispatcher: dispatcher, logger: logger}
}

// Get returns the user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes name and/or email. Changing the address drops the
// verified flag and issues a fresh verification token for the new address.
func (s *UserService) UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}

	emailChanged := false
	if email != "" {
		normalized := domain.NormalizeEmail(email)
		if normalized != user.Email {
			if existing, err := s.users.GetByEmail(ctx, normalized); err == nil && existing.ID != user.ID {
				return nil, apperrors.NewConflict("email already registered", nil)
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			user.Email = normalized
			user.IsEmailVerified = false
			emailChanged = true
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if emailChanged {
		if err := s.accounts.issueVerification(ctx, user, events.EventVerificationResent); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Delete removes the account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserDeleted,
			UserID:    id,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// List returns a page of users plus the total count. Admin-only at the
// routing layer.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]*domain.User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.users.List(ctx, perPage, (page-1)*perPage)
}
