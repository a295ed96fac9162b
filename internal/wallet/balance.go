package wallet

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// Balance returns the authenticated member's gold balance
func Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}

	var balance int64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance FROM wallets WHERE user_id=$1`, userID).
		Scan(&balance)

	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"user_id": userID,
			"gold":    balance,
		},
	})
}
