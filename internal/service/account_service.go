package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AccountService coordinates registration, login, email verification and
// password reset flows.
type AccountService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	revoker    auth.Revoker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	verifyTTL  time.Duration
	resetTTL   time.Duration
}

// AccountDependencies encapsulates collaborator requirements.
type AccountDependencies struct {
	UserRepo   repository.UserRepository
	Revoker    auth.Revoker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) *AccountService {
	return &AccountService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		revoker:    deps.Revoker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		verifyTTL:  cfg.VerificationTTL(),
		resetTTL:   cfg.PasswordResetTTL(),
	}
}

// Register creates a new unverified account and mails a verification link.
// The role is always USER at creation; it is never client-settable.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user, events.EventUserRegistered); err != nil {
		return nil, err
	}
	return user, nil
}

// ResendVerification mints a fresh verification token for an unverified
// account. The response is identical whether or not the email exists, so
// the endpoint cannot be used to enumerate accounts.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("verification resend for unknown email")
			return nil
		}
		return err
	}
	if user.IsEmailVerified {
		return nil
	}
	return s.issueVerification(ctx, user, events.EventVerificationResent)
}

// issueVerification overwrites any pending verification token, superseding
// it, and hands the new one to the email channel via the dispatcher.
func (s *AccountService) issueVerification(ctx context.Context, user *domain.User, eventType events.EventType) error {
	token, err := newEphemeralToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(s.verifyTTL)
	if err := s.users.SetVerificationToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	s.publish(ctx, eventType, user.ID, events.EmailTokenPayload{Email: user.Email, Token: token})
	return nil
}

// VerifyEmail redeems a verification token. Wrong, expired and replayed
// tokens all fail with the same unified error.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.RedeemVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidOrExpiredToken()
		}
		return err
	}

	s.publish(ctx, events.EventEmailVerified, user.ID, events.EmailVerifiedPayload{Email: user.Email})
	return nil
}

// Login authenticates a user and issues a session token carrying the
// identity snapshot at login time. Check order is fixed: lookup, then
// password, then the verification gate — the password is always compared
// before verification status is considered, so a wrong-password guess
// learns nothing about whether the account is verified.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	if !user.IsEmailVerified {
		return nil, "", time.Time{}, apperrors.NewEmailNotVerified()
	}

	token, expiresAt, err := s.tokenMgr.Generate(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// Logout denylists the presented session token for its remaining lifetime.
// Without a revoker configured this is a no-op: tokens simply age out.
func (s *AccountService) Logout(ctx context.Context, rawToken string) error {
	if s.revoker == nil {
		return nil
	}
	claims, err := s.tokenMgr.Parse(rawToken)
	if err != nil {
		// Nothing to revoke for an invalid token.
		return nil
	}
	return s.revoker.Revoke(ctx, rawToken, time.Until(claims.ExpiresAt.Time))
}

// RequestPasswordReset mints a reset token for the account. Unknown emails
// return the same nil result as known ones: the response shape never
// reveals whether an account exists.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := newEphemeralToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.EmailTokenPayload{Email: user.Email, Token: token})
	return nil
}

// ResetPassword redeems a reset token and installs the new password. The
// redemption is a single conditional update in the store, so concurrent
// attempts on the same token cannot both succeed.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.RedeemResetToken(ctx, token, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidOrExpiredToken()
		}
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email, Via: "reset"})
	return nil
}

// ChangePassword verifies the current password before installing a new one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email, Via: "change"})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// newEphemeralToken returns 32 random bytes hex-encoded: 64 chars of
// high-entropy single-use secret.
func newEphemeralToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
