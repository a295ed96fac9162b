package questboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// BoardQuest is the listing projection, including the poster's standing.
type BoardQuest struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	NPCID      string     `json:"npc_id"`
	NPCName    string     `json:"npc_name"`
	RewardGold int64      `json:"reward_gold"`
	XPReward   int64      `json:"xp_reward"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Browse lists open quests. NPCs who have lost disputes sink in the
// ordering: the board sorts by priority penalty first, then recency.
func (h *Handler) Browse(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	skip := 0
	if v := c.QueryParam("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}

	rows, err := db.Conn.Query(context.Background(), `
		SELECT q.id, q.title, q.npc_id, u.name, q.reward_gold, q.xp_reward,
		       q.deadline, q.status, q.created_at
		FROM quests q
		JOIN users u ON u.id = q.npc_id
		WHERE q.status = 'open'
		ORDER BY u.priority_penalty ASC, q.created_at DESC
		LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch quests"})
	}
	defer rows.Close()

	var quests []BoardQuest
	for rows.Next() {
		var q BoardQuest
		if err := rows.Scan(&q.ID, &q.Title, &q.NPCID, &q.NPCName, &q.RewardGold, &q.XPReward,
			&q.Deadline, &q.Status, &q.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "scan error"})
		}
		quests = append(quests, q)
	}

	return okItems(c, quests)
}

// MyQuests lists quests where the caller is either side.
func (h *Handler) MyQuests(c echo.Context) error {
	userID, _ := requester(c)

	rows, err := db.Conn.Query(context.Background(), `
		SELECT q.id, q.title, q.npc_id, u.name, q.reward_gold, q.xp_reward,
		       q.deadline, q.status, q.created_at
		FROM quests q
		JOIN users u ON u.id = q.npc_id
		WHERE q.npc_id = $1 OR q.adventurer_id = $1
		ORDER BY q.created_at DESC`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch quests"})
	}
	defer rows.Close()

	var quests []BoardQuest
	for rows.Next() {
		var q BoardQuest
		if err := rows.Scan(&q.ID, &q.Title, &q.NPCID, &q.NPCName, &q.RewardGold, &q.XPReward,
			&q.Deadline, &q.Status, &q.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "scan error"})
		}
		quests = append(quests, q)
	}

	return okItems(c, quests)
}
