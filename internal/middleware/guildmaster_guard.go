package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GuildMasterGuard ensures only the Guild Master can access adjudication
// and administration routes
func GuildMasterGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != "guildmaster" {
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false,
				"message": "guild master access only",
			})
		}
		return next(c)
	}
}
