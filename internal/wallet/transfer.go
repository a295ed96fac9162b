package wallet

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

type TransferRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note"`
}

// Transfer moves gold directly between two members, outside any quest.
// Tips, loans, party splits. Journaled as a direct payment.
func Transfer(c echo.Context) error {
	fromID, ok := c.Get("user_id").(string)
	if !ok || fromID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.ToUserID == "" || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "recipient and positive amount required"})
	}
	if req.ToUserID == fromID {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "cannot transfer to yourself"})
	}

	// Recipient must exist and be active
	var isActive bool
	err := db.Conn.QueryRow(context.Background(),
		`SELECT is_active FROM users WHERE id=$1`, req.ToUserID).Scan(&isActive)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "recipient not found"})
	}
	if !isActive {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "recipient account suspended"})
	}

	desc := "direct gold transfer"
	if req.Note != "" {
		desc = req.Note
	}

	err = store.Update(context.Background(), func(tx ledger.Tx) error {
		if err := tx.Debit(fromID, req.Amount); err != nil {
			return err
		}
		if err := tx.Credit(req.ToUserID, req.Amount); err != nil {
			return err
		}
		_, err := journal.AppendTx(tx, ledger.AppendParams{
			Type:        ledger.TxDirectPayment,
			Amount:      req.Amount,
			FromUser:    fromID,
			ToUser:      req.ToUserID,
			Description: desc,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "insufficient gold"})
		}
		if errors.Is(err, ledger.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "wallet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "transfer failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{
		"from":   fromID,
		"to":     req.ToUserID,
		"amount": req.Amount,
	}})
}
