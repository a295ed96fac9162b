package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Arbiter owns dispute records and their adjudication. Resolution moves
// gold, adjusts reputation and updates the quest, all inside one
// transaction.
type Arbiter struct {
	store   Store
	journal *Journal
}

func NewArbiter(store Store) *Arbiter {
	return &Arbiter{store: store, journal: NewJournal(store)}
}

type CreateConflictParams struct {
	QuestID        string
	Type           ConflictType
	RaisedBy       string
	RaisedByRole   string
	Description    string
	EscrowedAmount int64
}

// CreateConflict opens a dispute on a quest that has both parties assigned
// and no OPEN conflict yet, and flags the quest. The adventurer-side
// counter-escrow debit, when there is one, is performed by the calling
// workflow before this call and journaled as CONFLICT_ESCROW; conflict
// creation itself stays a pure state insert.
func (a *Arbiter) CreateConflict(ctx context.Context, p CreateConflictParams) (*Conflict, error) {
	var created *Conflict
	err := a.store.Update(ctx, func(tx Tx) error {
		if p.QuestID == "" || p.RaisedBy == "" {
			return fmt.Errorf("quest id and raiser required: %w", ErrValidation)
		}
		switch p.Type {
		case ConflictReportRejected, ConflictQuestChanged, ConflictDeadlineMissed:
		default:
			return fmt.Errorf("unknown conflict type %q: %w", p.Type, ErrValidation)
		}
		if p.EscrowedAmount < 0 {
			return fmt.Errorf("counter-escrow must be non-negative: %w", ErrValidation)
		}
		q, err := tx.QuestByID(p.QuestID)
		if err != nil {
			return err
		}
		if q.NPCID == "" || q.AdventurerID == "" {
			return fmt.Errorf("quest %s has no adventurer assigned: %w", p.QuestID, ErrInvalidState)
		}
		c := &Conflict{
			ID:             uuid.New().String(),
			QuestID:        p.QuestID,
			Type:           p.Type,
			Status:         ConflictOpen,
			RaisedBy:       p.RaisedBy,
			RaisedByRole:   p.RaisedByRole,
			NPCID:          q.NPCID,
			AdventurerID:   q.AdventurerID,
			Description:    p.Description,
			EscrowedAmount: p.EscrowedAmount,
			CreatedAt:      time.Now(),
		}
		if err := tx.InsertConflict(c); err != nil {
			return err
		}
		prev := q.Status
		q.HasConflict = true
		q.ConflictID = c.ID
		if err := tx.UpdateQuest(q, prev); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Resolve adjudicates an OPEN conflict.
//
// ADVENTURER_WIN pays the adventurer 1.5x the quest reward — funded by the
// released quest escrow plus the guild treasury — and returns the
// counter-escrow; the NPC takes a priority penalty and the quest ends paid.
//
// NPC_WIN refunds the quest escrow to the NPC, forfeits the counter-escrow
// to the guild treasury, demotes the adventurer one rank and cancels the
// quest.
func (a *Arbiter) Resolve(ctx context.Context, conflictID string, resolution Resolution, resolvedBy, notes string) (*Conflict, error) {
	var resolved *Conflict
	err := a.store.Update(ctx, func(tx Tx) error {
		if resolution != AdventurerWin && resolution != NPCWin {
			return fmt.Errorf("unknown resolution %q: %w", resolution, ErrValidation)
		}
		c, err := tx.ConflictByID(conflictID)
		if err != nil {
			return err
		}
		if c.Status != ConflictOpen {
			return fmt.Errorf("conflict %s already %s: %w", conflictID, c.Status, ErrInvalidState)
		}
		q, err := tx.QuestByID(c.QuestID)
		if err != nil {
			return err
		}
		switch resolution {
		case AdventurerWin:
			if err := a.resolveAdventurerWin(tx, c, q); err != nil {
				return err
			}
		case NPCWin:
			if err := a.resolveNPCWin(tx, c, q); err != nil {
				return err
			}
		}
		now := time.Now()
		c.Status = ConflictResolved
		c.Resolution = resolution
		c.ResolvedBy = resolvedBy
		c.ResolvedAt = &now
		c.ResolutionNotes = notes
		if err := tx.UpdateConflict(c, ConflictOpen); err != nil {
			return err
		}
		resolved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (a *Arbiter) resolveAdventurerWin(tx Tx, c *Conflict, q *Quest) error {
	award := q.RewardGold + q.RewardGold/2

	// The quest escrow funds the award up to the plain reward; the guild
	// treasury covers the adjudication bonus on top.
	var escrowPart int64
	e, err := tx.EscrowByQuest(c.QuestID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && e.Status == EscrowActive {
		now := time.Now()
		e.Status = EscrowReleased
		e.ReleasedAt = &now
		if err := tx.UpdateEscrow(e, EscrowActive); err != nil {
			return err
		}
		escrowPart = e.Amount
	}
	if bonus := award - escrowPart; bonus > 0 {
		if err := tx.Debit(TreasuryAccount, bonus); err != nil {
			return err
		}
	}
	if err := tx.Credit(c.AdventurerID, award); err != nil {
		return err
	}
	if _, err := a.journal.AppendTx(tx, AppendParams{
		QuestID:     c.QuestID,
		Type:        TxConflictPayout,
		Amount:      award,
		FromUser:    TreasuryAccount,
		ToUser:      c.AdventurerID,
		Description: "conflict adjudicated for adventurer",
	}); err != nil {
		return err
	}
	if c.EscrowedAmount > 0 {
		if err := tx.Credit(c.AdventurerID, c.EscrowedAmount); err != nil {
			return err
		}
		if _, err := a.journal.AppendTx(tx, AppendParams{
			QuestID:     c.QuestID,
			Type:        TxConflictPayout,
			Amount:      c.EscrowedAmount,
			ToUser:      c.AdventurerID,
			Description: "counter-escrow returned to adventurer",
		}); err != nil {
			return err
		}
	}

	// Losing a dispute lowers the NPC's future board visibility.
	npc, err := tx.ProfileByID(c.NPCID)
	if err != nil {
		return err
	}
	npc.PriorityPenalty++
	if err := tx.UpdateProfile(npc); err != nil {
		return err
	}

	prev := q.Status
	now := time.Now()
	q.Status = QuestPaid
	q.PaidGold = award
	q.PaidAt = &now
	q.HasConflict = false
	return tx.UpdateQuest(q, prev)
}

func (a *Arbiter) resolveNPCWin(tx Tx, c *Conflict, q *Quest) error {
	e, err := tx.EscrowByQuest(c.QuestID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && e.Status == EscrowActive {
		now := time.Now()
		e.Status = EscrowRefunded
		e.RefundedAt = &now
		if err := tx.UpdateEscrow(e, EscrowActive); err != nil {
			return err
		}
		if err := tx.Credit(e.NPCID, e.Amount); err != nil {
			return err
		}
		if _, err := a.journal.AppendTx(tx, AppendParams{
			QuestID:     c.QuestID,
			Type:        TxEscrowRefund,
			Amount:      e.Amount,
			ToUser:      e.NPCID,
			Description: "escrow refunded after conflict",
		}); err != nil {
			return err
		}
	}

	// The adventurer's counter-escrow is forfeited to the guild treasury.
	if c.EscrowedAmount > 0 {
		if err := tx.Credit(TreasuryAccount, c.EscrowedAmount); err != nil {
			return err
		}
		if _, err := a.journal.AppendTx(tx, AppendParams{
			QuestID:     c.QuestID,
			Type:        TxConflictPayout,
			Amount:      c.EscrowedAmount,
			ToUser:      TreasuryAccount,
			Description: "counter-escrow forfeited",
		}); err != nil {
			return err
		}
	}

	adv, err := tx.ProfileByID(c.AdventurerID)
	if err != nil {
		return err
	}
	adv.Rank = DemoteRank(adv.Rank)
	if err := tx.UpdateProfile(adv); err != nil {
		return err
	}

	prev := q.Status
	q.Status = QuestCancelled
	q.HasConflict = false
	return tx.UpdateQuest(q, prev)
}

// Cancel withdraws an OPEN conflict, returning any counter-escrow to the
// adventurer and clearing the quest flag.
func (a *Arbiter) Cancel(ctx context.Context, conflictID string) (*Conflict, error) {
	var out *Conflict
	err := a.store.Update(ctx, func(tx Tx) error {
		c, err := tx.ConflictByID(conflictID)
		if err != nil {
			return err
		}
		if c.Status != ConflictOpen {
			return fmt.Errorf("conflict %s already %s: %w", conflictID, c.Status, ErrInvalidState)
		}
		if c.EscrowedAmount > 0 {
			if err := tx.Credit(c.AdventurerID, c.EscrowedAmount); err != nil {
				return err
			}
			if _, err := a.journal.AppendTx(tx, AppendParams{
				QuestID:     c.QuestID,
				Type:        TxConflictPayout,
				Amount:      c.EscrowedAmount,
				ToUser:      c.AdventurerID,
				Description: "counter-escrow returned on withdrawal",
			}); err != nil {
				return err
			}
		}
		c.Status = ConflictCancelled
		if err := tx.UpdateConflict(c, ConflictOpen); err != nil {
			return err
		}
		q, err := tx.QuestByID(c.QuestID)
		if err != nil {
			return err
		}
		prev := q.Status
		q.HasConflict = false
		if err := tx.UpdateQuest(q, prev); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByQuest returns the quest's most recent conflict.
func (a *Arbiter) ByQuest(ctx context.Context, questID string) (*Conflict, error) {
	var out *Conflict
	err := a.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ConflictByQuest(questID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Open lists every OPEN conflict, oldest first.
func (a *Arbiter) Open(ctx context.Context) ([]Conflict, error) {
	var out []Conflict
	err := a.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.OpenConflicts()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
