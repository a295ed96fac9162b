package wallet

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminGetAllTransactions returns the full journal for Guild Master auditing
func AdminGetAllTransactions(c echo.Context) error {
	limit, skip := parsePagination(c)

	txs, err := journal.All(context.Background(), limit, skip)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": txs})
}

// AdminGetUserTransactions returns a specific member's journal history
func AdminGetUserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "user ID is required"})
	}

	limit, skip := parsePagination(c)

	txs, err := journal.ByUser(context.Background(), userID, limit, skip)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch user transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": txs})
}
