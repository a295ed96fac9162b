package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

type AdminUser struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Rank            string    `json:"rank"`
	XP              int64     `json:"xp"`
	PriorityPenalty int       `json:"priority_penalty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// GET /admin/users
func ListUsers(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, name, email, role, rank, xp, priority_penalty, is_active, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch users"})
	}
	defer rows.Close()

	var users []AdminUser
	for rows.Next() {
		var u AdminUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Rank, &u.XP, &u.PriorityPenalty, &u.IsActive, &u.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to read user record"})
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": users})
}

// POST /admin/users/:id/suspend
func SuspendUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "user id required"})
	}
	_, err := db.Conn.Exec(context.Background(), `UPDATE users SET is_active = FALSE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to suspend user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "user suspended", "user_id": userID}})
}

// POST /admin/users/:id/activate
func ActivateUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "user id required"})
	}
	_, err := db.Conn.Exec(context.Background(), `UPDATE users SET is_active = TRUE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to activate user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "user activated", "user_id": userID}})
}

// POST /admin/users/:id/promote_guildmaster
func PromoteGuildMaster(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "user id required"})
	}

	_, err := db.Conn.Exec(context.Background(), `UPDATE users SET role = 'guildmaster' WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to promote user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "user promoted to guild master", "user_id": userID}})
}
