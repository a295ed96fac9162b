package questboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

type ReportConflictRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ReportConflict opens a dispute on a quest the caller is party to. An
// adventurer raising a conflict stakes a counter-escrow of half the reward;
// it comes back if they win or withdraw, and is forfeited to the guild if
// they lose. NPCs stake nothing beyond the already-locked reward.
func (h *Handler) ReportConflict(c echo.Context) error {
	userID, role := requester(c)
	questID := c.Param("id")

	var req ReportConflictRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	ctx := c.Request().Context()

	var (
		quest   *ledger.Quest
		counter int64
	)
	err := h.Store.Update(ctx, func(tx ledger.Tx) error {
		q, err := tx.QuestByID(questID)
		if err != nil {
			return err
		}
		if userID != q.NPCID && userID != q.AdventurerID {
			return fmt.Errorf("not a party to this quest: %w", ledger.ErrValidation)
		}
		if q.Status != ledger.QuestInProgress && q.Status != ledger.QuestCompleted {
			return fmt.Errorf("quest is %s; conflicts need an active engagement: %w", q.Status, ledger.ErrInvalidState)
		}
		if q.HasConflict {
			return fmt.Errorf("quest already has an open conflict: %w", ledger.ErrDuplicateRecord)
		}
		if userID == q.AdventurerID {
			counter = q.RewardGold / 2
			if counter > 0 {
				if err := tx.Debit(userID, counter); err != nil {
					return err
				}
				if _, err := h.Journal.AppendTx(tx, ledger.AppendParams{
					QuestID:     questID,
					Type:        ledger.TxConflictEscrow,
					Amount:      counter,
					FromUser:    userID,
					Description: "counter-escrow staked on conflict",
				}); err != nil {
					return err
				}
			}
		}
		quest = q
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	conflict, err := h.Arbiter.CreateConflict(ctx, ledger.CreateConflictParams{
		QuestID:        questID,
		Type:           ledger.ConflictType(req.Type),
		RaisedBy:       userID,
		RaisedByRole:   role,
		Description:    req.Description,
		EscrowedAmount: counter,
	})
	if err != nil {
		// Hand the stake back; the conflict never came into being.
		if counter > 0 {
			_ = h.Store.Update(context.Background(), func(tx ledger.Tx) error {
				if err := tx.Credit(userID, counter); err != nil {
					return err
				}
				_, err := h.Journal.AppendTx(tx, ledger.AppendParams{
					QuestID:     questID,
					Type:        ledger.TxConflictPayout,
					Amount:      counter,
					ToUser:      userID,
					Description: "counter-escrow returned, conflict not opened",
				})
				return err
			})
		}
		return fail(c, err)
	}

	other := quest.NPCID
	if userID == quest.NPCID {
		other = quest.AdventurerID
	}
	_ = alerts.EnqueueConflictOpened(other, conflict.ID, quest.ID, quest.Title)
	_ = alerts.EnqueueGuildMasterAlert(conflict.ID, quest.ID, quest.Title)

	return ok(c, conflict)
}

// WithdrawConflict lets the raiser drop their own open conflict. The
// counter-escrow comes back in full.
func (h *Handler) WithdrawConflict(c echo.Context) error {
	userID, _ := requester(c)
	conflictID := c.Param("id")

	existing, err := h.conflictByID(c.Request().Context(), conflictID)
	if err != nil {
		return fail(c, err)
	}
	if existing.RaisedBy != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "only the raiser can withdraw a conflict"})
	}

	cancelled, err := h.Arbiter.Cancel(c.Request().Context(), conflictID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, cancelled)
}

// QuestConflict returns the quest's most recent conflict.
func (h *Handler) QuestConflict(c echo.Context) error {
	conflict, err := h.Arbiter.ByQuest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, conflict)
}

func (h *Handler) conflictByID(ctx context.Context, id string) (*ledger.Conflict, error) {
	var out *ledger.Conflict
	err := h.Store.View(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.ConflictByID(id)
		return err
	})
	return out, err
}
