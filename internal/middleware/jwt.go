package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/utils"
)

// JWTMiddleware validates the bearer token and stores user_id and role on
// the request context for the guards downstream.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false,
				"message": "missing or malformed token",
			})
		}
		userID, role, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false,
				"message": "invalid or expired token",
			})
		}
		c.Set("user_id", userID)
		c.Set("role", role)
		return next(c)
	}
}
