package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

const identityKey = "auth_identity"

// Identity is the authenticated caller snapshot carried for the remainder
// of the request. It is rebuilt from the token on every call, never stored.
type Identity struct {
	ID    string
	Email string
	Role  domain.Role
}

// Middleware validates bearer tokens and attaches identities.
type Middleware struct {
	tokens  *TokenManager
	revoker Revoker
}

// NewMiddleware constructs the middleware. revoker may be nil, in which case
// no revocation list is consulted.
func NewMiddleware(tokens *TokenManager, revoker Revoker) *Middleware {
	return &Middleware{tokens: tokens, revoker: revoker}
}

// Handle enforces authentication for protected routes. Failure codes are
// classified: MISSING_CREDENTIAL for an absent or garbled header,
// CREDENTIAL_EXPIRED for a timed out token, CREDENTIAL_INVALID for a
// tampered, malformed or revoked one.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	raw, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return apperrors.NewMissingCredential(err.Error())
	}

	claims, err := m.tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewCredentialExpired("token expired")
		}
		return apperrors.NewCredentialInvalid("invalid token")
	}

	if m.revoker != nil {
		revoked, err := m.revoker.IsRevoked(c.UserContext(), raw)
		if err != nil {
			return apperrors.MapError(err)
		}
		if revoked {
			return apperrors.NewCredentialInvalid("token revoked")
		}
	}

	c.Locals(identityKey, &Identity{
		ID:    claims.SubjectID,
		Email: claims.Email,
		Role:  claims.Role,
	})
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
