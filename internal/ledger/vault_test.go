package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedQuest(t *testing.T, store *MemStore, q *Quest) {
	t.Helper()
	err := store.Update(context.Background(), func(tx Tx) error {
		return tx.InsertQuest(q)
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, store Store, userID string) int64 {
	t.Helper()
	var bal int64
	err := store.View(context.Background(), func(tx Tx) error {
		var err error
		bal, err = tx.Balance(userID)
		return err
	})
	require.NoError(t, err)
	return bal
}

// totalGold sums wallets, active escrows and open counter-escrows. It must
// not change across any quest operation other than a topup.
func totalGold(t *testing.T, store *MemStore, users ...string) int64 {
	t.Helper()
	var total int64
	for _, u := range users {
		total += balanceOf(t, store, u)
	}
	err := store.View(context.Background(), func(tx Tx) error {
		for _, u := range users {
			escrows, err := tx.ActiveEscrowsByNPC(u)
			if err != nil {
				return err
			}
			for _, e := range escrows {
				total += e.Amount
			}
		}
		open, err := tx.OpenConflicts()
		if err != nil {
			return err
		}
		for _, c := range open {
			total += c.EscrowedAmount
		}
		return nil
	})
	require.NoError(t, err)
	return total
}

func TestCreateEscrowDebitsAndJournals(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 1000)
	vault := NewVault(store)
	seedQuest(t, store, &Quest{ID: "q1", NPCID: "npc-1", RewardGold: 300, Status: QuestOpen, CreatedAt: time.Now()})

	e, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{
		QuestID: "q1", NPCID: "npc-1", Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, EscrowActive, e.Status)
	require.Equal(t, int64(700), balanceOf(t, store, "npc-1"))

	rows, err := NewJournal(store).ByQuest(context.Background(), "q1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, TxEscrowDeposit, rows[0].Type)
	require.Equal(t, int64(300), rows[0].Amount)
	require.Equal(t, "npc-1", rows[0].FromUser)
}

func TestCreateEscrowInsufficientFunds(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 100)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{
		QuestID: "q1", NPCID: "npc-1", Amount: 300,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moved, nothing journaled.
	require.Equal(t, int64(100), balanceOf(t, store, "npc-1"))
	rows, err := NewJournal(store).ByQuest(context.Background(), "q1")
	require.NoError(t, err)
	require.Empty(t, rows)
	_, err = vault.EscrowByQuest(context.Background(), "q1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEscrowDuplicate(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 1000)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 300})
	require.NoError(t, err)

	_, err = vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 300})
	require.ErrorIs(t, err, ErrDuplicateRecord)

	// The failed attempt must not have debited.
	require.Equal(t, int64(700), balanceOf(t, store, "npc-1"))
}

func TestReleaseFull(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	store.SeedWallet("adv-1", 0)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)
	_, err = vault.AttachAdventurer(context.Background(), "q1", "adv-1")
	require.NoError(t, err)

	before := totalGold(t, store, "npc-1", "adv-1")

	e, released, err := vault.Release(context.Background(), "q1", nil)
	require.NoError(t, err)
	require.Equal(t, EscrowReleased, e.Status)
	require.NotNil(t, e.ReleasedAt)
	require.Equal(t, int64(500), released)
	require.Equal(t, int64(500), balanceOf(t, store, "adv-1"))
	require.Equal(t, int64(0), balanceOf(t, store, "npc-1"))
	require.Equal(t, before, totalGold(t, store, "npc-1", "adv-1"))
}

func TestReleasePartialRefundsRemainder(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	store.SeedWallet("adv-1", 0)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)
	_, err = vault.AttachAdventurer(context.Background(), "q1", "adv-1")
	require.NoError(t, err)

	partial := int64(300)
	_, released, err := vault.Release(context.Background(), "q1", &partial)
	require.NoError(t, err)
	require.Equal(t, int64(300), released)
	require.Equal(t, int64(300), balanceOf(t, store, "adv-1"))
	require.Equal(t, int64(200), balanceOf(t, store, "npc-1"))

	rows, err := NewJournal(store).ByQuest(context.Background(), "q1")
	require.NoError(t, err)
	// deposit, release, refund of the difference
	require.Len(t, rows, 3)
	require.Equal(t, TxEscrowRelease, rows[1].Type)
	require.Equal(t, TxEscrowRefund, rows[2].Type)
	require.Equal(t, int64(200), rows[2].Amount)
}

func TestReleaseAboveEscrowRejected(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	store.SeedWallet("adv-1", 0)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)
	_, err = vault.AttachAdventurer(context.Background(), "q1", "adv-1")
	require.NoError(t, err)

	over := int64(600)
	_, _, err = vault.Release(context.Background(), "q1", &over)
	require.ErrorIs(t, err, ErrValidation)

	// Escrow still active, balances untouched.
	e, err := vault.EscrowByQuest(context.Background(), "q1")
	require.NoError(t, err)
	require.Equal(t, EscrowActive, e.Status)
	require.Equal(t, int64(0), balanceOf(t, store, "adv-1"))
}

func TestReleaseWithoutAdventurer(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)

	_, _, err = vault.Release(context.Background(), "q1", nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundReturnsGoldToNPC(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)

	e, err := vault.Refund(context.Background(), "q1", "quest cancelled")
	require.NoError(t, err)
	require.Equal(t, EscrowRefunded, e.Status)
	require.NotNil(t, e.RefundedAt)
	require.Equal(t, int64(500), balanceOf(t, store, "npc-1"))
}

func TestEscrowTerminalOnce(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 500)
	store.SeedWallet("adv-1", 0)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 500})
	require.NoError(t, err)
	_, err = vault.AttachAdventurer(context.Background(), "q1", "adv-1")
	require.NoError(t, err)

	_, _, err = vault.Release(context.Background(), "q1", nil)
	require.NoError(t, err)

	// A released escrow can be neither refunded nor released again.
	_, err = vault.Refund(context.Background(), "q1", "")
	require.ErrorIs(t, err, ErrInvalidState)
	_, _, err = vault.Release(context.Background(), "q1", nil)
	require.ErrorIs(t, err, ErrInvalidState)

	// Adventurer was paid exactly once.
	require.Equal(t, int64(500), balanceOf(t, store, "adv-1"))
}

func TestNPCStats(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 1000)
	vault := NewVault(store)

	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q1", NPCID: "npc-1", Amount: 300})
	require.NoError(t, err)
	_, err = vault.CreateEscrow(context.Background(), CreateEscrowParams{QuestID: "q2", NPCID: "npc-1", Amount: 200})
	require.NoError(t, err)

	stats, err := vault.NPCStats(context.Background(), "npc-1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.ActiveCount)
	require.Equal(t, int64(500), stats.TotalLocked)
}
