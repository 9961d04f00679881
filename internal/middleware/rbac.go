package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cmscrm/api/internal/utils"
)

// RequireRole ensures the authenticated user holds at least one of the
// allowed role tags. Matching is case-insensitive and treats underscores as
// spaces, so "super_admin" and "Super Admin" are the same role.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		for _, role := range RolesFromContext(c) {
			if _, ok := allowed[normalizeRole(role)]; ok {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

func normalizeRole(role string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(role)), "_", " ")
}

// RolesFromContext returns the role tags bound to the request by JWTProtected.
func RolesFromContext(c *fiber.Ctx) []string {
	if value := c.Locals("user_roles"); value != nil {
		if roles, ok := value.([]string); ok {
			return roles
		}
	}
	return []string{}
}
