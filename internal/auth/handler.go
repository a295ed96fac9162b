package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/db"
	"github.com/sudo-init-do/questhub/internal/utils"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// ===== Signup =====
// New members register as either an NPC (quest poster) or an adventurer.
// The Guild Master role is never self-assigned; see BootstrapGuildMaster.
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Role != "npc" && req.Role != "adventurer" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "role must be npc or adventurer"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "server error"})
	}

	conn := db.Conn
	ctx := context.Background()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "db transaction error"})
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, uuid.New().String(), req.Name, req.Email, string(hashed), req.Role).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "email already exists"})
	}

	// Every member gets a gold wallet alongside the account
	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, created_at)
		VALUES ($1, 0, $2)
	`, userID, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "wallet creation failed"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "transaction failed"})
	}

	_ = alerts.EnqueueWelcome(userID, req.Email, req.Name, req.Role)

	signed, err := utils.GenerateToken(userID, req.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "token generation failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": SignupResponse{Token: signed}})
}
