package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

func newUserServices(t *testing.T) (*UserService, *AccountService, *recordingDispatcher) {
	t.Helper()
	svc, repo, dispatcher := newTestService(t)
	users := NewUserService(repo, svc, dispatcher, zap.NewNop())
	return users, svc, dispatcher
}

func TestUpdateProfileName(t *testing.T) {
	users, svc, dispatcher := newUserServices(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	updated, err := users.UpdateProfile(ctx, user.ID, "Alice Cooper", "")
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", updated.Name)
	require.True(t, updated.IsEmailVerified)
}

func TestUpdateProfileEmailChangeResetsVerification(t *testing.T) {
	users, svc, dispatcher := newUserServices(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	updated, err := users.UpdateProfile(ctx, user.ID, "", "alice@new-domain.com")
	require.NoError(t, err)
	require.Equal(t, "alice@new-domain.com", updated.Email)
	require.False(t, updated.IsEmailVerified)

	// A fresh verification token was issued for the new address.
	token := dispatcher.lastToken(t, events.EventVerificationResent)
	require.NoError(t, svc.VerifyEmail(ctx, token))

	fetched, err := users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, fetched.IsEmailVerified)
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	users, svc, dispatcher := newUserServices(t)
	ctx := context.Background()

	registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")
	bob := registerVerified(t, svc, dispatcher, "bob@example.com", "Secret123!")

	_, err := users.UpdateProfile(ctx, bob.ID, "", "alice@example.com")
	requireCode(t, err, "CONFLICT")
}

func TestDeleteUser(t *testing.T) {
	users, svc, dispatcher := newUserServices(t)
	ctx := context.Background()

	user := registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	require.NoError(t, users.Delete(ctx, user.ID))

	_, err := users.Get(ctx, user.ID)
	requireCode(t, err, "NOT_FOUND")

	err = users.Delete(ctx, user.ID)
	requireCode(t, err, "NOT_FOUND")
}

func TestListClampsPagination(t *testing.T) {
	users, svc, dispatcher := newUserServices(t)
	ctx := context.Background()

	registerVerified(t, svc, dispatcher, "alice@example.com", "Secret123!")

	page, total, err := users.List(ctx, 0, -5)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, page, 1)
}
