package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// GET /admin/stats
// Board totals plus the conservation snapshot: wallet gold, escrowed gold
// and open counter-escrows together should stay constant between topups.
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, quests, openQuests, openConflicts, transactions int
	var walletGold, lockedGold, counterEscrowed, treasury int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM quests`).Scan(&quests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM quests WHERE status = 'open'`).Scan(&openQuests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM conflicts WHERE status = 'OPEN'`).Scan(&openConflicts)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&transactions)

	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM wallets`).Scan(&walletGold)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM escrows WHERE status = 'ACTIVE'`).Scan(&lockedGold)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(escrowed_amount), 0) FROM conflicts WHERE status = 'OPEN'`).Scan(&counterEscrowed)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(balance, 0) FROM wallets WHERE user_id = 'guild-treasury'`).Scan(&treasury)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"users":            users,
			"quests":           quests,
			"open_quests":      openQuests,
			"open_conflicts":   openConflicts,
			"transactions":     transactions,
			"wallet_gold":      walletGold,
			"escrowed_gold":    lockedGold,
			"counter_escrowed": counterEscrowed,
			"treasury_gold":    treasury,
			"total_gold":       walletGold + lockedGold + counterEscrowed,
		},
	})
}
