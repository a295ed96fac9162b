package auth

import (
	"context"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
)

type BootstrapGuildMasterRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// BootstrapGuildMaster promotes an existing member to Guild Master. Guarded
// by a deployment secret so the first adjudicator can be installed without
// one already existing.
func BootstrapGuildMaster(c echo.Context) error {
	req := new(BootstrapGuildMasterRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	cfgSecret := os.Getenv("GUILDMASTER_BOOTSTRAP_SECRET")
	if cfgSecret == "" {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "bootstrap disabled"})
	}
	if req.Secret == "" || req.Secret != cfgSecret {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "invalid secret"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "email required"})
	}

	ct, err := db.Conn.Exec(context.Background(), `UPDATE users SET role = 'guildmaster' WHERE email = $1`, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to promote user"})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "user promoted to guild master", "email": req.Email}})
}
