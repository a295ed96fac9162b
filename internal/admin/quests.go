package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

type AdminQuest struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	NPCID        string     `json:"npc_id"`
	AdventurerID string     `json:"adventurer_id,omitempty"`
	RewardGold   int64      `json:"reward_gold"`
	Status       string     `json:"status"`
	HasConflict  bool       `json:"has_conflict"`
	CreatedAt    time.Time  `json:"created_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}

// GET /admin/quests?status=
func ListQuests(c echo.Context) error {
	status := c.QueryParam("status")

	query := `SELECT id, title, npc_id, adventurer_id, reward_gold, status, has_conflict, created_at, paid_at
	          FROM quests ORDER BY created_at DESC LIMIT 200`
	args := []interface{}{}
	if status != "" {
		query = `SELECT id, title, npc_id, adventurer_id, reward_gold, status, has_conflict, created_at, paid_at
		         FROM quests WHERE status = $1 ORDER BY created_at DESC LIMIT 200`
		args = append(args, status)
	}

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch quests"})
	}
	defer rows.Close()

	var quests []AdminQuest
	for rows.Next() {
		var q AdminQuest
		if err := rows.Scan(&q.ID, &q.Title, &q.NPCID, &q.AdventurerID, &q.RewardGold, &q.Status, &q.HasConflict, &q.CreatedAt, &q.PaidAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to read quest record"})
		}
		quests = append(quests, q)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": quests})
}
