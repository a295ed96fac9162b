package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/sudo-init-do/questhub/internal/db"
)

func main() {
	email := flag.String("email", "", "Email of the member to promote to guild master")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/promote_guildmaster/main.go -email user@example.com")
	}

	_ = godotenv.Load()
	db.Init()

	ct, err := db.Conn.Exec(context.Background(), `UPDATE users SET role = 'guildmaster' WHERE email = $1`, *email)
	if err != nil {
		log.Fatalf("failed to promote user to guild master: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("promoted %s to guild master\n", *email)
}
