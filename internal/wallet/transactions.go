package wallet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// TransactionsHandler returns the authenticated member's journal history,
// newest first. Supports ?limit= and ?skip=.
func TransactionsHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized or invalid user"})
	}

	limit, skip := parsePagination(c)

	txs, err := journal.ByUser(context.Background(), uid, limit, skip)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": txs})
}

// TopupsHandler returns the member's topup records
func TopupsHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized or invalid user"})
	}

	rows, err := db.Conn.Query(
		context.Background(),
		`SELECT id, user_id, amount, status, created_at
		 FROM topups
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		uid,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch topups"})
	}
	defer rows.Close()

	var topups []Topup
	for rows.Next() {
		var t Topup
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Status, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "scan error"})
		}
		topups = append(topups, t)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": topups})
}

func parsePagination(c echo.Context) (limit, skip int) {
	limit = 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := c.QueryParam("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	return limit, skip
}
