package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// conflictFixture builds a completed quest with its reward in escrow, the
// adventurer attached, and a conflict raised by the adventurer with a
// half-reward counter-escrow staked.
func conflictFixture(t *testing.T, reward int64) (*MemStore, *Arbiter, *Conflict) {
	t.Helper()
	store := NewMemStore()
	store.SeedWallet("npc-1", reward)
	store.SeedWallet("adv-1", reward) // enough to stake the counter-escrow
	store.SeedWallet(TreasuryAccount, 10_000)
	store.SeedProfile(Profile{UserID: "npc-1", Rank: "F"})
	store.SeedProfile(Profile{UserID: "adv-1", Rank: "D", XP: 450})

	vault := NewVault(store)
	journal := NewJournal(store)
	arbiter := NewArbiter(store)

	seedQuest(t, store, &Quest{
		ID: "q1", Title: "Clear the cellar", NPCID: "npc-1", AdventurerID: "adv-1",
		RewardGold: reward, Status: QuestCompleted, CreatedAt: time.Now(),
	})
	_, err := vault.CreateEscrow(context.Background(), CreateEscrowParams{
		QuestID: "q1", NPCID: "npc-1", AdventurerID: "adv-1", Amount: reward,
	})
	require.NoError(t, err)

	counter := reward / 2
	err = store.Update(context.Background(), func(tx Tx) error {
		if err := tx.Debit("adv-1", counter); err != nil {
			return err
		}
		_, err := journal.AppendTx(tx, AppendParams{
			QuestID: "q1", Type: TxConflictEscrow, Amount: counter, FromUser: "adv-1",
		})
		return err
	})
	require.NoError(t, err)

	c, err := arbiter.CreateConflict(context.Background(), CreateConflictParams{
		QuestID:        "q1",
		Type:           ConflictReportRejected,
		RaisedBy:       "adv-1",
		RaisedByRole:   "adventurer",
		Description:    "report rejected without cause",
		EscrowedAmount: counter,
	})
	require.NoError(t, err)
	return store, arbiter, c
}

func questByID(t *testing.T, store Store, id string) *Quest {
	t.Helper()
	var q *Quest
	err := store.View(context.Background(), func(tx Tx) error {
		var err error
		q, err = tx.QuestByID(id)
		return err
	})
	require.NoError(t, err)
	return q
}

func profileOf(t *testing.T, store Store, userID string) *Profile {
	t.Helper()
	var p *Profile
	err := store.View(context.Background(), func(tx Tx) error {
		var err error
		p, err = tx.ProfileByID(userID)
		return err
	})
	require.NoError(t, err)
	return p
}

func TestCreateConflictRequiresAssignedAdventurer(t *testing.T) {
	store := NewMemStore()
	arbiter := NewArbiter(store)
	seedQuest(t, store, &Quest{ID: "q1", NPCID: "npc-1", RewardGold: 100, Status: QuestOpen, CreatedAt: time.Now()})

	_, err := arbiter.CreateConflict(context.Background(), CreateConflictParams{
		QuestID: "q1", Type: ConflictQuestChanged, RaisedBy: "npc-1", RaisedByRole: "npc",
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateConflictSecondOpenRejected(t *testing.T) {
	_, arbiter, c := conflictFixture(t, 400)
	require.Equal(t, ConflictOpen, c.Status)

	_, err := arbiter.CreateConflict(context.Background(), CreateConflictParams{
		QuestID: "q1", Type: ConflictQuestChanged, RaisedBy: "npc-1", RaisedByRole: "npc",
	})
	require.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestResolveAdventurerWin(t *testing.T) {
	store, arbiter, c := conflictFixture(t, 400)
	before := totalGold(t, store, "npc-1", "adv-1", TreasuryAccount)

	resolved, err := arbiter.Resolve(context.Background(), c.ID, AdventurerWin, "gm-1", "npc acted in bad faith")
	require.NoError(t, err)
	require.Equal(t, ConflictResolved, resolved.Status)
	require.Equal(t, AdventurerWin, resolved.Resolution)
	require.Equal(t, "gm-1", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	// Award is 1.5x the reward plus the returned counter-escrow. The
	// adventurer started with 400, staked 200, then received 600 + 200.
	require.Equal(t, int64(1000), balanceOf(t, store, "adv-1"))
	// The escrow covered 400 of the 600 award; the treasury paid the rest.
	require.Equal(t, int64(10_000-200), balanceOf(t, store, TreasuryAccount))
	require.Equal(t, int64(0), balanceOf(t, store, "npc-1"))

	// The losing NPC sinks on the board.
	require.Equal(t, 1, profileOf(t, store, "npc-1").PriorityPenalty)

	q := questByID(t, store, "q1")
	require.Equal(t, QuestPaid, q.Status)
	require.Equal(t, int64(600), q.PaidGold)
	require.False(t, q.HasConflict)

	require.Equal(t, before, totalGold(t, store, "npc-1", "adv-1", TreasuryAccount))
}

func TestResolveNPCWin(t *testing.T) {
	store, arbiter, c := conflictFixture(t, 400)
	before := totalGold(t, store, "npc-1", "adv-1", TreasuryAccount)

	resolved, err := arbiter.Resolve(context.Background(), c.ID, NPCWin, "gm-1", "work never delivered")
	require.NoError(t, err)
	require.Equal(t, NPCWin, resolved.Resolution)

	// NPC recovers the escrowed reward; the stake goes to the guild.
	require.Equal(t, int64(400), balanceOf(t, store, "npc-1"))
	require.Equal(t, int64(200), balanceOf(t, store, "adv-1"))
	require.Equal(t, int64(10_200), balanceOf(t, store, TreasuryAccount))

	// Losing a dispute costs the adventurer one rank.
	require.Equal(t, "E", profileOf(t, store, "adv-1").Rank)

	q := questByID(t, store, "q1")
	require.Equal(t, QuestCancelled, q.Status)
	require.False(t, q.HasConflict)

	require.Equal(t, before, totalGold(t, store, "npc-1", "adv-1", TreasuryAccount))
}

func TestResolveTwiceRejected(t *testing.T) {
	store, arbiter, c := conflictFixture(t, 400)

	_, err := arbiter.Resolve(context.Background(), c.ID, NPCWin, "gm-1", "")
	require.NoError(t, err)

	_, err = arbiter.Resolve(context.Background(), c.ID, AdventurerWin, "gm-1", "")
	require.ErrorIs(t, err, ErrInvalidState)

	// The second ruling moved nothing.
	require.Equal(t, int64(400), balanceOf(t, store, "npc-1"))
	require.Equal(t, int64(200), balanceOf(t, store, "adv-1"))
}

func TestResolveUnknownResolution(t *testing.T) {
	_, arbiter, c := conflictFixture(t, 400)
	_, err := arbiter.Resolve(context.Background(), c.ID, Resolution("SPLIT"), "gm-1", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCancelReturnsCounterEscrow(t *testing.T) {
	store, arbiter, c := conflictFixture(t, 400)
	before := totalGold(t, store, "npc-1", "adv-1", TreasuryAccount)

	cancelled, err := arbiter.Cancel(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, ConflictCancelled, cancelled.Status)

	// The stake came back; the quest escrow is untouched.
	require.Equal(t, int64(400), balanceOf(t, store, "adv-1"))
	q := questByID(t, store, "q1")
	require.Equal(t, QuestCompleted, q.Status)
	require.False(t, q.HasConflict)

	require.Equal(t, before, totalGold(t, store, "npc-1", "adv-1", TreasuryAccount))
}

func TestOpenConflictsOldestFirst(t *testing.T) {
	store := NewMemStore()
	store.SeedWallet("npc-1", 1000)
	arbiter := NewArbiter(store)

	for _, id := range []string{"q1", "q2"} {
		seedQuest(t, store, &Quest{
			ID: id, NPCID: "npc-1", AdventurerID: "adv-1",
			RewardGold: 100, Status: QuestInProgress, CreatedAt: time.Now(),
		})
		_, err := arbiter.CreateConflict(context.Background(), CreateConflictParams{
			QuestID: id, Type: ConflictDeadlineMissed, RaisedBy: "npc-1", RaisedByRole: "npc",
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	open, err := arbiter.Open(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, "q1", open[0].QuestID)
	require.Equal(t, "q2", open[1].QuestID)
}
