package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

func requireForbidden(t *testing.T, err error) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestAuthorizeOwnerOrRole(t *testing.T) {
	owner := &Identity{ID: "7", Email: "alice@example.com", Role: domain.RoleUser}
	admin := &Identity{ID: "1", Email: "root@example.com", Role: domain.RoleAdmin}

	require.NoError(t, AuthorizeOwnerOrRole(owner, "7", domain.RoleAdmin))
	require.NoError(t, AuthorizeOwnerOrRole(admin, "7", domain.RoleAdmin))

	err := AuthorizeOwnerOrRole(owner, "8", domain.RoleAdmin)
	requireForbidden(t, err)
}

func TestAuthorizeOwnerOrRoleNormalizesIDs(t *testing.T) {
	identity := &Identity{ID: "AB12-cd34", Role: domain.RoleUser}
	require.NoError(t, AuthorizeOwnerOrRole(identity, "  ab12-CD34 "))
}

func TestAuthorizeOwnerOrRoleNilIdentity(t *testing.T) {
	err := AuthorizeOwnerOrRole(nil, "7", domain.RoleAdmin)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, "MISSING_CREDENTIAL", domainErr.Code)
}

func TestAuthorizeRole(t *testing.T) {
	admin := &Identity{ID: "1", Role: domain.RoleAdmin}
	user := &Identity{ID: "2", Role: domain.RoleUser}

	require.NoError(t, AuthorizeRole(admin, domain.RoleAdmin))
	requireForbidden(t, AuthorizeRole(user, domain.RoleAdmin))
	requireForbidden(t, AuthorizeRole(admin, domain.RoleModerator))
}
