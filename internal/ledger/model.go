package ledger

import "time"

// TreasuryAccount is the guild's own wallet. It bankrolls the adjudication
// bonus paid on adventurer wins and receives forfeited counter-escrows, so
// gold conservation can be checked across the whole ledger.
const TreasuryAccount = "guild-treasury"

// Escrow status lifecycle: ACTIVE moves to exactly one terminal state.
type EscrowStatus string

const (
	EscrowActive    EscrowStatus = "ACTIVE"
	EscrowReleased  EscrowStatus = "RELEASED"
	EscrowRefunded  EscrowStatus = "REFUNDED"
	EscrowCancelled EscrowStatus = "CANCELLED"
)

// Escrow holds an NPC's quest reward until the quest reaches an outcome.
// One escrow per quest.
type Escrow struct {
	QuestID      string       `json:"quest_id"`
	NPCID        string       `json:"npc_id"`
	AdventurerID string       `json:"adventurer_id,omitempty"`
	Amount       int64        `json:"amount"`
	Status       EscrowStatus `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ReleasedAt   *time.Time   `json:"released_at,omitempty"`
	RefundedAt   *time.Time   `json:"refunded_at,omitempty"`
}

// TransactionType is the business reason for a gold movement.
type TransactionType string

const (
	TxEscrowDeposit  TransactionType = "ESCROW_DEPOSIT"
	TxEscrowRelease  TransactionType = "ESCROW_RELEASE"
	TxEscrowRefund   TransactionType = "ESCROW_REFUND"
	TxConflictEscrow TransactionType = "CONFLICT_ESCROW"
	TxConflictPayout TransactionType = "CONFLICT_PAYOUT"
	TxDirectPayment  TransactionType = "DIRECT_PAYMENT"
)

// TxCompleted is the only transaction status current flows write.
const TxCompleted = "COMPLETED"

// Transaction is one immutable journal row. Rows are never updated after
// insertion; FromUser/ToUser are empty when gold enters or leaves custody
// rather than a user wallet.
type Transaction struct {
	ID          string            `json:"id"`
	QuestID     string            `json:"quest_id,omitempty"`
	Type        TransactionType   `json:"type"`
	Status      string            `json:"status"`
	FromUser    string            `json:"from_user,omitempty"`
	ToUser      string            `json:"to_user,omitempty"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ConflictType classifies why a dispute was raised.
type ConflictType string

const (
	ConflictReportRejected ConflictType = "REPORT_REJECTED"
	ConflictQuestChanged   ConflictType = "QUEST_CHANGED"
	ConflictDeadlineMissed ConflictType = "DEADLINE_MISSED"
)

type ConflictStatus string

const (
	ConflictOpen      ConflictStatus = "OPEN"
	ConflictResolved  ConflictStatus = "RESOLVED"
	ConflictCancelled ConflictStatus = "CANCELLED"
)

type Resolution string

const (
	AdventurerWin Resolution = "ADVENTURER_WIN"
	NPCWin        Resolution = "NPC_WIN"
)

// Conflict is a formal dispute between quest participants awaiting a
// guild-master verdict. At most one OPEN conflict exists per quest.
type Conflict struct {
	ID              string         `json:"id"`
	QuestID         string         `json:"quest_id"`
	Type            ConflictType   `json:"type"`
	Status          ConflictStatus `json:"status"`
	RaisedBy        string         `json:"raised_by"`
	RaisedByRole    string         `json:"raised_by_role"`
	NPCID           string         `json:"npc_id"`
	AdventurerID    string         `json:"adventurer_id"`
	Description     string         `json:"description"`
	EscrowedAmount  int64          `json:"escrowed_amount"`
	Resolution      Resolution     `json:"resolution,omitempty"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Quest lifecycle statuses.
const (
	QuestOpen       = "open"
	QuestInProgress = "in_progress"
	QuestCompleted  = "completed"
	QuestPaid       = "paid"
	QuestCancelled  = "cancelled"
)

// Quest is the board record whose status must stay in lock-step with the
// ledger. The ledger only touches the fields below; listing metadata lives
// with the questboard handlers.
type Quest struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	NPCID        string     `json:"npc_id"`
	AdventurerID string     `json:"adventurer_id,omitempty"`
	RewardGold   int64      `json:"reward_gold"`
	XPReward     int64      `json:"xp_reward"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Status       string     `json:"status"`
	HasConflict  bool       `json:"has_conflict"`
	ConflictID   string     `json:"conflict_id,omitempty"`
	PaidGold     int64      `json:"paid_gold,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Profile carries the reputation fields the arbiter adjusts.
type Profile struct {
	UserID          string `json:"user_id"`
	Rank            string `json:"rank"`
	XP              int64  `json:"xp"`
	PriorityPenalty int    `json:"priority_penalty"`
}

// EscrowStats summarises an NPC's locked gold.
type EscrowStats struct {
	NPCID       string `json:"npc_id"`
	TotalLocked int64  `json:"total_locked"`
	ActiveCount int    `json:"active_count"`
}
