package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/sudo-init-do/questhub/internal/db"
	"github.com/sudo-init-do/questhub/internal/ledger"
)

// Operator tool: mint gold into a wallet outside the topup flow. The grant
// is journaled as a direct payment so the audit trail stays complete.
func main() {
	email := flag.String("email", "", "Email of the member to grant gold to")
	amount := flag.Int64("amount", 0, "Amount of gold to grant")
	reason := flag.String("reason", "operator grant", "Journal description")
	flag.Parse()

	if *email == "" || *amount <= 0 {
		log.Fatalf("usage: go run cmd/adminutil/grant_gold/main.go -email user@example.com -amount 500")
	}

	_ = godotenv.Load()
	db.Init()

	var userID string
	if err := db.Conn.QueryRow(context.Background(),
		`SELECT id FROM users WHERE email = $1`, *email).Scan(&userID); err != nil {
		log.Fatalf("no user found with email: %s", *email)
	}

	store := ledger.NewPGStore(db.Conn)
	journal := ledger.NewJournal(store)

	err := store.Update(context.Background(), func(tx ledger.Tx) error {
		if err := tx.Credit(userID, *amount); err != nil {
			return err
		}
		_, err := journal.AppendTx(tx, ledger.AppendParams{
			Type:        ledger.TxDirectPayment,
			Amount:      *amount,
			ToUser:      userID,
			Description: *reason,
		})
		return err
	})
	if err != nil {
		log.Fatalf("failed to grant gold: %v", err)
	}

	fmt.Printf("granted %d gold to %s\n", *amount, *email)
}
