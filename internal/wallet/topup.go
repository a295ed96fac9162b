package wallet

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/db"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

type TopupRequest struct {
	Amount int64 `json:"amount" validate:"required,min=100"`
}

type TopupResponse struct {
	TopupID string `json:"topup_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TopupInit creates a new pending topup record
func TopupInit(c echo.Context) error {
	req := new(TopupRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}

	conn := db.Conn
	ctx := context.Background()

	topupID := uuid.New().String()
	createdAt := time.Now()

	_, err := conn.Exec(ctx,
		`INSERT INTO topups (id, user_id, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		topupID, userID, req.Amount, "pending", createdAt,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not create topup"})
	}

	// mock payment URL until a real gold vendor is integrated
	paymentURL := os.Getenv("MOCK_PAYMENT_URL")
	if paymentURL == "" {
		paymentURL = "https://pay.questhub.dev/mock/" + topupID
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": TopupResponse{
		TopupID: topupID,
		Status:  "pending",
		Message: "Topup initialized. Complete payment at " + paymentURL,
	}})
}

type TopupConfirmRequest struct {
	TopupID string `json:"topup_id"`
}

// TopupConfirm settles a pending topup: the topup row flips to confirmed,
// the wallet is credited and the credit is journaled as a direct payment
// referencing the topup.
func TopupConfirm(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}

	var req TopupConfirmRequest
	if err := c.Bind(&req); err != nil || req.TopupID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	ctx := context.Background()

	// Guarded flip: only a pending topup owned by the caller can confirm,
	// so double confirmation cannot double credit.
	var amount int64
	err := db.Conn.QueryRow(ctx,
		`UPDATE topups SET status='confirmed'
		 WHERE id=$1 AND user_id=$2 AND status='pending'
		 RETURNING amount`,
		req.TopupID, userID,
	).Scan(&amount)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "pending topup not found"})
	}

	err = store.Update(ctx, func(tx ledger.Tx) error {
		if err := tx.Credit(userID, amount); err != nil {
			return err
		}
		_, err := journal.AppendTx(tx, ledger.AppendParams{
			Type:        ledger.TxDirectPayment,
			Amount:      amount,
			ToUser:      userID,
			Description: "gold topup",
			Metadata:    map[string]string{"topup_id": req.TopupID},
		})
		return err
	})
	if err != nil {
		// Put the topup back so it can be retried.
		_, _ = db.Conn.Exec(ctx, `UPDATE topups SET status='pending' WHERE id=$1`, req.TopupID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not credit wallet"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{
		"topup_id": req.TopupID,
		"status":   "confirmed",
		"amount":   amount,
	}})
}
