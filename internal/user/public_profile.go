package user

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

// GET /user/:id/profile
// Public guild card: rank, experience and dispute record are visible to
// everyone so NPCs can size up an adventurer before handing over a quest.
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "missing user id"})
	}

	var (
		id              string
		name            string
		bio             string
		avatarURL       string
		role            string
		rank            string
		xp              int64
		priorityPenalty int
		createdAt       time.Time
	)

	query := `
		SELECT id, name, bio, avatar_url, role, rank, xp, priority_penalty, created_at
		FROM users
		WHERE id = $1
	`

	err := db.Conn.QueryRow(context.Background(), query, userID).Scan(
		&id,
		&name,
		&bio,
		&avatarURL,
		&role,
		&rank,
		&xp,
		&priorityPenalty,
		&createdAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to fetch user"})
	}

	profile := echo.Map{
		"id":               id,
		"name":             name,
		"bio":              bio,
		"avatar_url":       avatarURL,
		"role":             role,
		"rank":             rank,
		"xp":               xp,
		"priority_penalty": priorityPenalty,
		"created_at":       createdAt.Format(time.RFC3339),
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": profile})
}
