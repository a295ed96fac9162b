package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// Me returns the currently authenticated member's profile, including guild
// standing and wallet balance. Mounted behind JWTMiddleware.
func Me(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token claims"})
	}

	var (
		id, name, email, role, rank string
		xp                          int64
		priorityPenalty             int
		balance                     int64
	)
	err := db.Conn.QueryRow(context.Background(), `
        SELECT u.id, u.name, u.email, u.role, u.rank, u.xp, u.priority_penalty,
               COALESCE(w.balance, 0)
        FROM users u
        LEFT JOIN wallets w ON w.user_id = u.id
        WHERE u.id = $1`, userID).
		Scan(&id, &name, &email, &role, &rank, &xp, &priorityPenalty, &balance)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"id":               id,
			"name":             name,
			"email":            email,
			"role":             role,
			"rank":             rank,
			"xp":               xp,
			"priority_penalty": priorityPenalty,
			"gold":             balance,
		},
	})
}
