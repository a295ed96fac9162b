package ledger

import "context"

// Store gives the economy engines atomic access to the guild's record sets.
// Update runs fn inside one read-write transaction: either every write in fn
// lands or none do. View runs fn against a read-only snapshot.
//
// Tx write methods carry their own precondition guards (balance floors,
// from-status checks, uniqueness) so that two racing operations on the same
// quest can never both cross a terminal transition: the loser sees
// ErrInvalidState or ErrDuplicateRecord and the caller may retry from
// scratch.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional handle passed to Store closures.
type Tx interface {
	// Wallets. Debit fails ErrInsufficientFunds when the balance would go
	// negative and ErrNotFound when no wallet exists.
	Balance(userID string) (int64, error)
	Credit(userID string, amount int64) error
	Debit(userID string, amount int64) error

	// Quests. UpdateQuest only applies while the stored status equals
	// fromStatus, otherwise ErrInvalidState.
	QuestByID(questID string) (*Quest, error)
	InsertQuest(q *Quest) error
	UpdateQuest(q *Quest, fromStatus string) error

	// Escrows, one row per quest. InsertEscrow fails ErrDuplicateRecord if
	// the quest already has one; UpdateEscrow is guarded like UpdateQuest.
	EscrowByQuest(questID string) (*Escrow, error)
	ActiveEscrowsByNPC(npcID string) ([]Escrow, error)
	InsertEscrow(e *Escrow) error
	UpdateEscrow(e *Escrow, fromStatus EscrowStatus) error

	// Conflicts. InsertConflict fails ErrDuplicateRecord while the quest
	// already has an OPEN conflict.
	ConflictByID(id string) (*Conflict, error)
	ConflictByQuest(questID string) (*Conflict, error)
	OpenConflicts() ([]Conflict, error)
	InsertConflict(c *Conflict) error
	UpdateConflict(c *Conflict, fromStatus ConflictStatus) error

	// Journal. Insert only; journal rows are immutable.
	InsertTransaction(t *Transaction) error
	TransactionsByQuest(questID string) ([]Transaction, error)
	TransactionsByUser(userID string, limit, skip int) ([]Transaction, error)
	AllTransactions(limit, skip int) ([]Transaction, error)

	// Reputation fields on the user record.
	ProfileByID(userID string) (*Profile, error)
	UpdateProfile(p *Profile) error
}
