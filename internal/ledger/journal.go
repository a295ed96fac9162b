package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Journal is the append-only audit log of gold movements. It is audit-first:
// beyond the non-negative amount check it applies no business validation, so
// it can faithfully record whatever the calling workflow asserts happened.
type Journal struct {
	store Store
}

func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

type AppendParams struct {
	QuestID     string
	Type        TransactionType
	Amount      int64
	FromUser    string
	ToUser      string
	Description string
	Metadata    map[string]string
}

// Append inserts one journal row. Rows are immutable after insertion.
func (j *Journal) Append(ctx context.Context, p AppendParams) (*Transaction, error) {
	var out *Transaction
	err := j.store.Update(ctx, func(tx Tx) error {
		var err error
		out, err = j.AppendTx(tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppendTx is the composable form used inside vault and arbiter
// transactions.
func (j *Journal) AppendTx(tx Tx, p AppendParams) (*Transaction, error) {
	if p.Amount < 0 {
		return nil, fmt.Errorf("journal amount must be non-negative: %w", ErrValidation)
	}
	t := &Transaction{
		ID:          uuid.New().String(),
		QuestID:     p.QuestID,
		Type:        p.Type,
		Status:      TxCompleted,
		FromUser:    p.FromUser,
		ToUser:      p.ToUser,
		Amount:      p.Amount,
		Description: p.Description,
		Metadata:    p.Metadata,
		CreatedAt:   time.Now(),
	}
	if err := tx.InsertTransaction(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ByQuest returns every journal row for a quest in insertion order.
func (j *Journal) ByQuest(ctx context.Context, questID string) ([]Transaction, error) {
	var out []Transaction
	err := j.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.TransactionsByQuest(questID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByUser returns the user's journal rows (either side), newest first.
func (j *Journal) ByUser(ctx context.Context, userID string, limit, skip int) ([]Transaction, error) {
	var out []Transaction
	err := j.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.TransactionsByUser(userID, limit, skip)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// All returns journal rows across quests, newest first.
func (j *Journal) All(ctx context.Context, limit, skip int) ([]Transaction, error) {
	var out []Transaction
	err := j.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.AllTransactions(limit, skip)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeQuestBalance replays a quest's journal: deposits and conflict
// escrows add, releases, refunds and payouts subtract. The result should
// match the live escrow plus any open counter-escrow; it is an integrity
// cross-check, not a hot path.
func (j *Journal) ComputeQuestBalance(ctx context.Context, questID string) (int64, error) {
	rows, err := j.ByQuest(ctx, questID)
	if err != nil {
		return 0, err
	}
	var balance int64
	for _, t := range rows {
		switch t.Type {
		case TxEscrowDeposit, TxConflictEscrow:
			balance += t.Amount
		case TxEscrowRelease, TxEscrowRefund, TxConflictPayout:
			balance -= t.Amount
		}
	}
	return balance, nil
}
