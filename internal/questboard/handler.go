package questboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/ledger"
)

// Handler serves the quest board: posting, accepting, completing and paying
// quests, plus the conflict intake. Money movement goes through the ledger
// engines so every workflow is a single transaction.
type Handler struct {
	Store   ledger.Store
	Vault   *ledger.Vault
	Arbiter *ledger.Arbiter
	Journal *ledger.Journal
}

func NewHandler(s ledger.Store) *Handler {
	return &Handler{
		Store:   s,
		Vault:   ledger.NewVault(s),
		Arbiter: ledger.NewArbiter(s),
		Journal: ledger.NewJournal(s),
	}
}

func requester(c echo.Context) (userID, role string) {
	userID, _ = c.Get("user_id").(string)
	role, _ = c.Get("role").(string)
	return userID, role
}

// fail maps ledger errors onto HTTP statuses and the standard envelope.
func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, ledger.ErrDuplicateRecord):
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{"success": false, "message": err.Error()})
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

func okItems(c echo.Context, items interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": items})
}
