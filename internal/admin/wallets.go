package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

type AdminWallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	Locked    int64     `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /admin/wallets
// Each row shows free gold plus gold locked in that member's active escrows.
func ListWallets(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(), `
		SELECT w.user_id, w.balance,
		       COALESCE((SELECT SUM(e.amount) FROM escrows e
		                 WHERE e.npc_id = w.user_id AND e.status = 'ACTIVE'), 0),
		       w.created_at
		FROM wallets w
		ORDER BY w.created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch wallets"})
	}
	defer rows.Close()

	var wallets []AdminWallet
	for rows.Next() {
		var w AdminWallet
		if err := rows.Scan(&w.UserID, &w.Balance, &w.Locked, &w.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to read wallet record"})
		}
		wallets = append(wallets, w)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": wallets})
}
