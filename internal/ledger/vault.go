package ledger

import (
	"context"
	"fmt"
	"time"
)

// Vault owns escrow custody: it is the only component that opens escrows,
// and every escrow transition it performs debits or credits wallets and
// journals the movement inside the same transaction.
type Vault struct {
	store   Store
	journal *Journal
}

func NewVault(store Store) *Vault {
	return &Vault{store: store, journal: NewJournal(store)}
}

type CreateEscrowParams struct {
	QuestID      string
	NPCID        string
	AdventurerID string
	Amount       int64
	Notes        string
}

// CreateEscrow debits the NPC and opens an ACTIVE escrow for the quest,
// journaling the deposit. Fails ErrInsufficientFunds without touching the
// balance, and ErrDuplicateRecord when the quest already has an escrow.
func (v *Vault) CreateEscrow(ctx context.Context, p CreateEscrowParams) (*Escrow, error) {
	var created *Escrow
	err := v.store.Update(ctx, func(tx Tx) error {
		var err error
		created, err = v.CreateEscrowTx(tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateEscrowTx is the composable form used by workflows that open the
// escrow together with other writes (e.g. posting the quest itself).
func (v *Vault) CreateEscrowTx(tx Tx, p CreateEscrowParams) (*Escrow, error) {
	if p.QuestID == "" || p.NPCID == "" {
		return nil, fmt.Errorf("quest and npc ids required: %w", ErrValidation)
	}
	if p.Amount < 0 {
		return nil, fmt.Errorf("escrow amount must be non-negative: %w", ErrValidation)
	}
	if err := tx.Debit(p.NPCID, p.Amount); err != nil {
		return nil, err
	}
	e := &Escrow{
		QuestID:      p.QuestID,
		NPCID:        p.NPCID,
		AdventurerID: p.AdventurerID,
		Amount:       p.Amount,
		Status:       EscrowActive,
		Notes:        p.Notes,
		CreatedAt:    time.Now(),
	}
	if err := tx.InsertEscrow(e); err != nil {
		return nil, err
	}
	_, err := v.journal.AppendTx(tx, AppendParams{
		QuestID:     p.QuestID,
		Type:        TxEscrowDeposit,
		Amount:      p.Amount,
		FromUser:    p.NPCID,
		Description: "quest reward held in escrow",
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// AttachAdventurer records the accepting adventurer on an ACTIVE escrow.
func (v *Vault) AttachAdventurer(ctx context.Context, questID, adventurerID string) (*Escrow, error) {
	var out *Escrow
	err := v.store.Update(ctx, func(tx Tx) error {
		var err error
		out, err = v.AttachAdventurerTx(tx, questID, adventurerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Vault) AttachAdventurerTx(tx Tx, questID, adventurerID string) (*Escrow, error) {
	if adventurerID == "" {
		return nil, fmt.Errorf("adventurer id required: %w", ErrValidation)
	}
	e, err := tx.EscrowByQuest(questID)
	if err != nil {
		return nil, err
	}
	if e.Status != EscrowActive {
		return nil, fmt.Errorf("escrow for quest %s is %s: %w", questID, e.Status, ErrInvalidState)
	}
	e.AdventurerID = adventurerID
	if err := tx.UpdateEscrow(e, EscrowActive); err != nil {
		return nil, err
	}
	return e, nil
}

// Release pays the attached adventurer out of an ACTIVE escrow. A nil
// actualAmount releases the full escrow; a smaller amount pays the
// adventurer that much and refunds the NPC the difference. Amounts above
// the escrow are rejected: the escrow can never overdraw.
func (v *Vault) Release(ctx context.Context, questID string, actualAmount *int64) (*Escrow, int64, error) {
	var (
		out      *Escrow
		released int64
	)
	err := v.store.Update(ctx, func(tx Tx) error {
		var err error
		out, released, err = v.ReleaseTx(tx, questID, actualAmount)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, released, nil
}

func (v *Vault) ReleaseTx(tx Tx, questID string, actualAmount *int64) (*Escrow, int64, error) {
	e, err := tx.EscrowByQuest(questID)
	if err != nil {
		return nil, 0, err
	}
	if e.Status != EscrowActive {
		return nil, 0, fmt.Errorf("escrow for quest %s is %s: %w", questID, e.Status, ErrInvalidState)
	}
	if e.AdventurerID == "" {
		return nil, 0, fmt.Errorf("no adventurer attached to quest %s: %w", questID, ErrInvalidState)
	}
	released := e.Amount
	if actualAmount != nil {
		if *actualAmount < 0 {
			return nil, 0, fmt.Errorf("release amount must be non-negative: %w", ErrValidation)
		}
		if *actualAmount > e.Amount {
			return nil, 0, fmt.Errorf("release amount %d exceeds escrow %d: %w", *actualAmount, e.Amount, ErrValidation)
		}
		released = *actualAmount
	}
	now := time.Now()
	e.Status = EscrowReleased
	e.ReleasedAt = &now
	if err := tx.UpdateEscrow(e, EscrowActive); err != nil {
		return nil, 0, err
	}
	if err := tx.Credit(e.AdventurerID, released); err != nil {
		return nil, 0, err
	}
	_, err = v.journal.AppendTx(tx, AppendParams{
		QuestID:     questID,
		Type:        TxEscrowRelease,
		Amount:      released,
		ToUser:      e.AdventurerID,
		Description: "quest reward released from escrow",
	})
	if err != nil {
		return nil, 0, err
	}
	if diff := e.Amount - released; diff > 0 {
		if err := tx.Credit(e.NPCID, diff); err != nil {
			return nil, 0, err
		}
		_, err = v.journal.AppendTx(tx, AppendParams{
			QuestID:     questID,
			Type:        TxEscrowRefund,
			Amount:      diff,
			ToUser:      e.NPCID,
			Description: "unused escrow returned after partial release",
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return e, released, nil
}

// Refund returns the full escrow to the NPC and closes it.
func (v *Vault) Refund(ctx context.Context, questID, reason string) (*Escrow, error) {
	var out *Escrow
	err := v.store.Update(ctx, func(tx Tx) error {
		var err error
		out, err = v.RefundTx(tx, questID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Vault) RefundTx(tx Tx, questID, reason string) (*Escrow, error) {
	e, err := tx.EscrowByQuest(questID)
	if err != nil {
		return nil, err
	}
	if e.Status != EscrowActive {
		return nil, fmt.Errorf("escrow for quest %s is %s: %w", questID, e.Status, ErrInvalidState)
	}
	now := time.Now()
	e.Status = EscrowRefunded
	e.RefundedAt = &now
	if reason != "" {
		e.Notes = reason
	}
	if err := tx.UpdateEscrow(e, EscrowActive); err != nil {
		return nil, err
	}
	if err := tx.Credit(e.NPCID, e.Amount); err != nil {
		return nil, err
	}
	_, err = v.journal.AppendTx(tx, AppendParams{
		QuestID:     questID,
		Type:        TxEscrowRefund,
		Amount:      e.Amount,
		ToUser:      e.NPCID,
		Description: "escrow refunded to quest poster",
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// EscrowByQuest is a read-only lookup.
func (v *Vault) EscrowByQuest(ctx context.Context, questID string) (*Escrow, error) {
	var out *Escrow
	err := v.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.EscrowByQuest(questID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveByNPC lists the NPC's ACTIVE escrows, newest first.
func (v *Vault) ActiveByNPC(ctx context.Context, npcID string) ([]Escrow, error) {
	var out []Escrow
	err := v.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ActiveEscrowsByNPC(npcID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NPCStats sums the NPC's locked gold across ACTIVE escrows.
func (v *Vault) NPCStats(ctx context.Context, npcID string) (*EscrowStats, error) {
	escrows, err := v.ActiveByNPC(ctx, npcID)
	if err != nil {
		return nil, err
	}
	stats := &EscrowStats{NPCID: npcID, ActiveCount: len(escrows)}
	for _, e := range escrows {
		stats.TotalLocked += e.Amount
	}
	return stats, nil
}
