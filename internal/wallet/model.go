package wallet

import (
	"time"

	"github.com/sudo-init-do/questhub/internal/ledger"
)

type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Topup is an external gold purchase being brought into the guild economy.
type Topup struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	store   ledger.Store
	journal *ledger.Journal
)

// Init wires the wallet handlers to the ledger. Call once at boot.
func Init(s ledger.Store) {
	store = s
	journal = ledger.NewJournal(s)
}
