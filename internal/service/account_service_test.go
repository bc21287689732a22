package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// recordingDispatcher captures published events so tests can pull the
// ephemeral tokens that would normally travel by email.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) lastToken(t *testing.T, eventType events.EventType) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].Type != eventType {
			continue
		}
		payload, ok := d.events[i].Payload.(events.EmailTokenPayload)
		require.True(t, ok)
		return payload.Token
	}
	t.Fatalf("no %s event recorded", eventType)
	return ""
}

func newTestService(t *testing.T) (*AccountService, *repository.MemoryUserRepository, *recordingDispatcher) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	dispatcher := &recordingDispatcher{}
	svc := NewAccountService(config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLHours:     24,
		VerificationTTLHours:    24,
		PasswordResetTTLMinutes: 60,
		BcryptCost:              4,
	}, AccountDependencies{
		UserRepo:   repo,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, repo, dispatcher
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "error %v", err)
	require.Equal(t, code, domainErr.Code)
}

func registerVerified(t *testing.T, svc *AccountService, dispatcher *recordingDispatcher, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", email, password)
	require.NoError(t, err)

	token := dispatcher.lastToken(t, events.EventUserRegistered)
	require.Len(t, token, 64)
	require.NoError(t, svc.VerifyEmail(ctx, token))
	return user
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")
	require.Equal(t, domain.RoleUser, user.Role)

	loggedIn, token, expiresAt, err := svc.Login(ctx, "alice@example.com", "Secret123!")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.SubjectID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, domain.RoleUser, claims.Role)

	identity := &auth.Identity{ID: claims.SubjectID, Email: claims.Email, Role: claims.Role}
	require.NoError(t, auth.AuthorizeOwnerOrRole(identity, user.ID, domain.RoleAdmin))
	require.Error(t, auth.AuthorizeOwnerOrRole(identity, "someone-else", domain.RoleAdmin))
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "  Alice@Example.COM ", "Secret123!")
	require.NoError(t, err)

	stored, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", stored.Email)

	_, err = svc.Register(ctx, "Mallory", "alice@example.com", "Other456!")
	requireCode(t, err, "CONFLICT")
}

func TestLoginRejectsUnverified(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "Secret123!")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alice@example.com", "Secret123!")
	requireCode(t, err, "EMAIL_NOT_VERIFIED")
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	_, _, _, err := svc.Login(ctx, "alice@example.com", "wrong-password")
	requireCode(t, err, "UNAUTHORIZED")

	_, _, _, err = svc.Login(ctx, "nobody@example.com", "Secret123!")
	requireCode(t, err, "UNAUTHORIZED")
}

func TestVerifyEmailSingleUse(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "Secret123!")
	require.NoError(t, err)

	token := dispatcher.lastToken(t, events.EventUserRegistered)
	require.NoError(t, svc.VerifyEmail(ctx, token))

	err = svc.VerifyEmail(ctx, token)
	requireCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.VerifyEmail(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	requireCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestReissueSupersedesVerificationToken(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "Secret123!")
	require.NoError(t, err)
	first := dispatcher.lastToken(t, events.EventUserRegistered)

	require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
	second := dispatcher.lastToken(t, events.EventVerificationResent)
	require.NotEqual(t, first, second)

	err = svc.VerifyEmail(ctx, first)
	requireCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
	require.NoError(t, svc.VerifyEmail(ctx, second))
}

func TestRequestPasswordResetEnumerationResistant(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	// Known and unknown addresses both yield a bare nil.
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := dispatcher.lastToken(t, events.EventPasswordResetRequested)
	require.Len(t, token, 64)

	require.NoError(t, svc.ResetPassword(ctx, token, "NewSecret456!"))

	// Old password no longer works, new one does.
	_, _, _, err := svc.Login(ctx, "alice@example.com", "Secret123!")
	requireCode(t, err, "UNAUTHORIZED")
	_, _, _, err = svc.Login(ctx, "alice@example.com", "NewSecret456!")
	require.NoError(t, err)

	// Single use: a replay fails.
	err = svc.ResetPassword(ctx, token, "Another789!")
	requireCode(t, err, "INVALID_OR_EXPIRED_TOKEN")
}

func TestPasswordResetExpiredToken(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	// Plant a token that expired a minute ago.
	expired := "deadbeef" + "00000000000000000000000000000000000000000000000000000000"
	require.NoError(t, repo.SetResetToken(ctx, user.ID, expired, time.Now().Add(-time.Minute)))

	err := svc.ResetPassword(ctx, expired, "NewSecret456!")
	requireCode(t, err, "INVALID_OR_EXPIRED_TOKEN")

	// The password is untouched.
	_, _, _, err = svc.Login(ctx, "alice@example.com", "Secret123!")
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	err := svc.ChangePassword(ctx, user.ID, "wrong", "NewSecret456!")
	requireCode(t, err, "UNAUTHORIZED")

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secret123!", "NewSecret456!"))
	_, _, _, err = svc.Login(ctx, "alice@example.com", "NewSecret456!")
	require.NoError(t, err)
}
