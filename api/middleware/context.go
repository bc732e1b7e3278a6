package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contextPrincipalIDKey = "auth_principal_id"
	contextKindKey        = "auth_kind"
	contextRoleKey        = "auth_role"
)

func SetAuthContext(c echo.Context, principalID uuid.UUID, kind string, role string) {
	c.Set(contextPrincipalIDKey, principalID)
	c.Set(contextKindKey, kind)
	c.Set(contextRoleKey, role)
}

func PrincipalIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(contextPrincipalIDKey)
	principalID, ok := value.(uuid.UUID)
	return principalID, ok
}

func KindFromContext(c echo.Context) (string, bool) {
	value := c.Get(contextKindKey)
	kind, ok := value.(string)
	return kind, ok
}

func RoleFromContext(c echo.Context) (string, bool) {
	value := c.Get(contextRoleKey)
	role, ok := value.(string)
	return role, ok
}
