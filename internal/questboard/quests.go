package questboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

type PostQuestRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	RewardGold  int64      `json:"reward_gold"`
	XPReward    int64      `json:"xp_reward"`
	Deadline    *time.Time `json:"deadline"`
}

// PostQuest publishes a quest and locks its reward in escrow, both in one
// transaction: a quest never appears on the board without its gold secured.
func (h *Handler) PostQuest(c echo.Context) error {
	npcID, role := requester(c)
	if role != "npc" {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "only NPCs can post quests"})
	}

	var req PostQuestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Title == "" {
		return fail(c, fmt.Errorf("title required: %w", ledger.ErrValidation))
	}
	if req.RewardGold <= 0 {
		return fail(c, fmt.Errorf("reward must be positive: %w", ledger.ErrValidation))
	}
	if req.XPReward < 0 {
		return fail(c, fmt.Errorf("xp reward must be non-negative: %w", ledger.ErrValidation))
	}
	if req.Deadline != nil && req.Deadline.Before(time.Now()) {
		return fail(c, fmt.Errorf("deadline already passed: %w", ledger.ErrValidation))
	}

	q := &ledger.Quest{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		NPCID:       npcID,
		RewardGold:  req.RewardGold,
		XPReward:    req.XPReward,
		Deadline:    req.Deadline,
		Status:      ledger.QuestOpen,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := h.Store.Update(c.Request().Context(), func(tx ledger.Tx) error {
		if err := tx.InsertQuest(q); err != nil {
			return err
		}
		_, err := h.Vault.CreateEscrowTx(tx, ledger.CreateEscrowParams{
			QuestID: q.ID,
			NPCID:   npcID,
			Amount:  req.RewardGold,
			Notes:   "reward for " + req.Title,
		})
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return ok(c, q)
}

// AcceptQuest assigns an open quest to the calling adventurer and attaches
// them to the escrow.
func (h *Handler) AcceptQuest(c echo.Context) error {
	advID, role := requester(c)
	if role != "adventurer" {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "only adventurers can accept quests"})
	}
	questID := c.Param("id")

	var accepted *ledger.Quest
	err := h.Store.Update(c.Request().Context(), func(tx ledger.Tx) error {
		q, err := tx.QuestByID(questID)
		if err != nil {
			return err
		}
		if q.Status != ledger.QuestOpen {
			return fmt.Errorf("quest is %s, not open: %w", q.Status, ledger.ErrInvalidState)
		}
		if q.NPCID == advID {
			return fmt.Errorf("cannot accept your own quest: %w", ledger.ErrValidation)
		}
		q.AdventurerID = advID
		q.Status = ledger.QuestInProgress
		if err := tx.UpdateQuest(q, ledger.QuestOpen); err != nil {
			return err
		}
		if _, err := h.Vault.AttachAdventurerTx(tx, questID, advID); err != nil {
			return err
		}
		accepted = q
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	_ = alerts.EnqueueQuestAccepted(accepted.NPCID, accepted.ID, accepted.Title)

	return ok(c, accepted)
}

type CompleteQuestRequest struct {
	Report string `json:"report"`
}

// CompleteQuest files the adventurer's completion report. The quest waits
// in completed until the NPC pays or raises a conflict.
func (h *Handler) CompleteQuest(c echo.Context) error {
	advID, _ := requester(c)
	questID := c.Param("id")

	var req CompleteQuestRequest
	_ = c.Bind(&req)

	var completed *ledger.Quest
	err := h.Store.Update(c.Request().Context(), func(tx ledger.Tx) error {
		q, err := tx.QuestByID(questID)
		if err != nil {
			return err
		}
		if q.AdventurerID != advID {
			return fmt.Errorf("quest is not assigned to you: %w", ledger.ErrValidation)
		}
		if q.Status != ledger.QuestInProgress {
			return fmt.Errorf("quest is %s, not in_progress: %w", q.Status, ledger.ErrInvalidState)
		}
		q.Status = ledger.QuestCompleted
		if err := tx.UpdateQuest(q, ledger.QuestInProgress); err != nil {
			return err
		}
		completed = q
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	_ = alerts.EnqueueQuestCompleted(completed.NPCID, completed.ID, completed.Title, req.Report)

	return ok(c, completed)
}

type PayQuestRequest struct {
	ActualAmount *int64 `json:"actual_amount"`
}

// PayQuest is the NPC accepting the completion report: the escrow releases
// to the adventurer (optionally a partial amount, remainder refunded), XP is
// awarded and the quest ends paid.
func (h *Handler) PayQuest(c echo.Context) error {
	npcID, _ := requester(c)
	questID := c.Param("id")

	var req PayQuestRequest
	_ = c.Bind(&req)

	var (
		paid     *ledger.Quest
		released int64
	)
	err := h.Store.Update(c.Request().Context(), func(tx ledger.Tx) error {
		q, err := tx.QuestByID(questID)
		if err != nil {
			return err
		}
		if q.NPCID != npcID {
			return fmt.Errorf("only the posting NPC can pay: %w", ledger.ErrValidation)
		}
		if q.Status != ledger.QuestCompleted {
			return fmt.Errorf("quest is %s, not completed: %w", q.Status, ledger.ErrInvalidState)
		}
		if q.HasConflict {
			return fmt.Errorf("quest has an open conflict: %w", ledger.ErrInvalidState)
		}
		_, released, err = h.Vault.ReleaseTx(tx, questID, req.ActualAmount)
		if err != nil {
			return err
		}

		// Experience follows the gold.
		if q.XPReward > 0 {
			p, err := tx.ProfileByID(q.AdventurerID)
			if err != nil {
				return err
			}
			p.XP += q.XPReward
			p.Rank = ledger.CalculateRank(p.XP)
			if err := tx.UpdateProfile(p); err != nil {
				return err
			}
		}

		now := time.Now()
		q.Status = ledger.QuestPaid
		q.PaidGold = released
		q.PaidAt = &now
		if err := tx.UpdateQuest(q, ledger.QuestCompleted); err != nil {
			return err
		}
		paid = q
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	_ = alerts.EnqueueQuestPaid(paid.AdventurerID, paid.ID, paid.Title, released)

	return ok(c, paid)
}

// CancelQuest withdraws an open quest and refunds its escrow. Only quests
// nobody has accepted can be cancelled this way; later stages go through
// the conflict process.
func (h *Handler) CancelQuest(c echo.Context) error {
	npcID, _ := requester(c)
	questID := c.Param("id")

	var cancelled *ledger.Quest
	err := h.Store.Update(c.Request().Context(), func(tx ledger.Tx) error {
		q, err := tx.QuestByID(questID)
		if err != nil {
			return err
		}
		if q.NPCID != npcID {
			return fmt.Errorf("only the posting NPC can cancel: %w", ledger.ErrValidation)
		}
		if q.Status != ledger.QuestOpen {
			return fmt.Errorf("quest is %s, not open: %w", q.Status, ledger.ErrInvalidState)
		}
		if _, err := h.Vault.RefundTx(tx, questID, "quest cancelled by poster"); err != nil {
			return err
		}
		q.Status = ledger.QuestCancelled
		if err := tx.UpdateQuest(q, ledger.QuestOpen); err != nil {
			return err
		}
		cancelled = q
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	return ok(c, cancelled)
}

// GetQuest returns a single quest.
func (h *Handler) GetQuest(c echo.Context) error {
	questID := c.Param("id")
	var q *ledger.Quest
	err := h.Store.View(c.Request().Context(), func(tx ledger.Tx) error {
		var err error
		q, err = tx.QuestByID(questID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, q)
}

// Affordability tells an NPC whether their free balance covers a reward
// before they try to post.
func (h *Handler) Affordability(c echo.Context) error {
	userID, _ := requester(c)
	var amount int64
	if _, err := fmt.Sscan(c.QueryParam("amount"), &amount); err != nil || amount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "valid amount required"})
	}

	var balance int64
	err := h.Store.View(context.Background(), func(tx ledger.Tx) error {
		var err error
		balance, err = tx.Balance(userID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	stats, err := h.Vault.NPCStats(context.Background(), userID)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, echo.Map{
		"amount":      amount,
		"gold":        balance,
		"locked_gold": stats.TotalLocked,
		"affordable":  balance >= amount,
	})
}
