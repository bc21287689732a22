package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthorizeOwnerOrRole allows the operation when the identity holds one of
// the elevated roles or owns the target resource. IDs are compared after
// normalization so a path parameter never falsely mismatches a stored id on
// formatting alone.
func AuthorizeOwnerOrRole(identity *Identity, targetID string, elevated ...domain.Role) error {
	if identity == nil {
		return apperrors.NewMissingCredential("missing authorization header")
	}
	for _, role := range elevated {
		if identity.Role == role {
			return nil
		}
	}
	if normalizeID(identity.ID) == normalizeID(targetID) {
		return nil
	}
	return apperrors.NewForbidden("not the resource owner")
}

// AuthorizeRole allows the operation only when the identity holds exactly
// the required role.
func AuthorizeRole(identity *Identity, required domain.Role) error {
	if identity == nil {
		return apperrors.NewMissingCredential("missing authorization header")
	}
	if identity.Role != required {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// RequireAuthenticated ensures some identity was attached by the middleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewMissingCredential("missing authorization header")
		}
		return c.Next()
	}
}

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewMissingCredential("missing authorization header")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
