package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-service/internal/domain"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. Admins
// pass every role check.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 || principal.Role() == domain.RoleAdmin {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role()]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures any principal is present.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
