package admin

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

var arbiter *ledger.Arbiter

// Init wires the adjudication handlers to the ledger. Call once at boot.
func Init(s ledger.Store) {
	arbiter = ledger.NewArbiter(s)
}

// GET /admin/conflicts
// Open conflicts, oldest first: the Guild Master works the queue in order.
func ListOpenConflicts(c echo.Context) error {
	conflicts, err := arbiter.Open(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not fetch conflicts"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": conflicts})
}

type ResolveConflictRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

// POST /admin/conflicts/:id/resolve
func ResolveConflict(c echo.Context) error {
	gmID, _ := c.Get("user_id").(string)
	conflictID := c.Param("id")

	var req ResolveConflictRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	resolved, err := arbiter.Resolve(c.Request().Context(), conflictID, ledger.Resolution(req.Resolution), gmID, req.Notes)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrInsufficientFunds):
			status = http.StatusBadRequest
		case errors.Is(err, ledger.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ledger.ErrInvalidState):
			status = http.StatusConflict
		}
		return c.JSON(status, echo.Map{"success": false, "message": err.Error()})
	}

	_ = alerts.EnqueueConflictResolved(resolved.NPCID, resolved.ID, resolved.QuestID, string(resolved.Resolution))
	_ = alerts.EnqueueConflictResolved(resolved.AdventurerID, resolved.ID, resolved.QuestID, string(resolved.Resolution))

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": resolved})
}
