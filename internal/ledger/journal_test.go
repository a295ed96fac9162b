package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournalRejectsNegativeAmount(t *testing.T) {
	store := NewMemStore()
	journal := NewJournal(store)

	_, err := journal.Append(context.Background(), AppendParams{
		Type:   TxDirectPayment,
		Amount: -5,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestJournalByUserNewestFirst(t *testing.T) {
	store := NewMemStore()
	journal := NewJournal(store)

	for i, desc := range []string{"first", "second", "third"} {
		_, err := journal.Append(context.Background(), AppendParams{
			Type:        TxDirectPayment,
			Amount:      int64(i + 1),
			ToUser:      "u1",
			Description: desc,
		})
		require.NoError(t, err)
	}

	rows, err := journal.ByUser(context.Background(), "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "third", rows[0].Description)
	require.Equal(t, "first", rows[2].Description)

	// Pagination slices the same ordering.
	page, err := journal.ByUser(context.Background(), "u1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "second", page[0].Description)
}

func TestComputeQuestBalance(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 1000)
	store.SeedWallet("adv-1", 100)
	vault := NewVault(store)
	journal := NewJournal(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 400})
	require.NoError(t, err)

	bal, err := journal.ComputeQuestBalance(context.Background(), "q1")
	require.NoError(t, err)
	require.Equal(t, int64(400), bal)

	// A counter-escrow adds to the quest's held gold.
	err = store.Update(context.Background(), func(tx Tx) error {
		if err := tx.Debit("adv-1", 100); err != nil {
			return err
		}
		_, err := journal.AppendTx(tx, AppendParams{
			QuestID: "q1", Type: TxConflictEscrow, Amount: 100, FromUser: "adv-1",
		})
		return err
	})
	require.NoError(t, err)

	bal, err = journal.ComputeQuestBalance(context.Background(), "q1")
	require.NoError(t, err)
	require.Equal(t, int64(500), bal)

	// Releasing drains the replayed balance back down.
	_, err = vault.AttachAdventurer(context.Background(), "q1", "adv-1")
	require.NoError(t, err)
	_, _, err = vault.Release(context.Background(), "q1", nil)
	require.NoError(t, err)

	bal, err = journal.ComputeQuestBalance(context.Background(), "q1")
	require.NoError(t, err)
	require.Equal(t, int64(100), bal)
}

func TestJournalRowsImmutableAcrossReads(t *testing.T) {
	store := NewMemStore()
	journal := NewJournal(store)

	tr, err := journal.Append(context.Background(), AppendParams{
		Type: TxDirectPayment, Amount: 10, ToUser: "u1",
	})
	require.NoError(t, err)
	require.Equal(t, TxCompleted, tr.Status)

	rows, err := journal.ByUser(context.Background(), "u1", 0, 0)
	require.NoError(t, err)
	rows[0].Amount = 999

	again, err := journal.ByUser(context.Background(), "u1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(10), again[0].Amount)
}
