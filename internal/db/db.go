package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the guild schema
func Init() {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	// Users, wallets and quests first; everything else references them
	ensureUsersTable()
	ensureWalletsTable()
	ensureQuestsTable()

	// Ledger record sets
	ensureEscrowsTable()
	ensureTransactionsTable()
	ensureConflictsTable()

	// Support tables
	ensureTopupsTable()
	ensureNotificationsTable()

	// The treasury bankrolls adjudication bonuses and absorbs forfeits
	ensureGuildTreasury()
}

func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('npc', 'adventurer', 'guildmaster', 'system')),
            rank TEXT NOT NULL DEFAULT 'F',
            xp BIGINT NOT NULL DEFAULT 0,
            priority_penalty INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

func ensureWalletsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure wallets table: %v", err)
	}
}

func ensureQuestsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS quests (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            npc_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            adventurer_id TEXT NOT NULL DEFAULT '',
            reward_gold BIGINT NOT NULL CHECK (reward_gold >= 0),
            xp_reward BIGINT NOT NULL DEFAULT 0,
            deadline TIMESTAMP WITH TIME ZONE NULL,
            status TEXT NOT NULL CHECK (status IN ('open', 'in_progress', 'completed', 'paid', 'cancelled')),
            has_conflict BOOLEAN NOT NULL DEFAULT FALSE,
            conflict_id TEXT NOT NULL DEFAULT '',
            paid_gold BIGINT NOT NULL DEFAULT 0,
            paid_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_quests_npc ON quests(npc_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_quests_adventurer ON quests(adventurer_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_quests_status ON quests(status);
    `)
	if err != nil {
		log.Printf("failed to ensure quests table: %v", err)
	}
}

func ensureEscrowsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS escrows (
            quest_id TEXT PRIMARY KEY REFERENCES quests(id) ON DELETE CASCADE,
            npc_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            adventurer_id TEXT NOT NULL DEFAULT '',
            amount BIGINT NOT NULL CHECK (amount >= 0),
            status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RELEASED', 'REFUNDED', 'CANCELLED')),
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            released_at TIMESTAMP WITH TIME ZONE NULL,
            refunded_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_escrows_npc_active ON escrows(npc_id) WHERE status = 'ACTIVE';
    `)
	if err != nil {
		log.Printf("failed to ensure escrows table: %v", err)
	}
}

func ensureTransactionsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            quest_id TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL CHECK (type IN (
                'ESCROW_DEPOSIT', 'ESCROW_RELEASE', 'ESCROW_REFUND',
                'CONFLICT_ESCROW', 'CONFLICT_PAYOUT', 'DIRECT_PAYMENT'
            )),
            status TEXT NOT NULL DEFAULT 'COMPLETED',
            from_user TEXT NOT NULL DEFAULT '',
            to_user TEXT NOT NULL DEFAULT '',
            amount BIGINT NOT NULL CHECK (amount >= 0),
            description TEXT NOT NULL DEFAULT '',
            metadata JSONB NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_quest ON transactions(quest_id);
        CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_user, created_at);
        CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_user, created_at);
    `)
	if err != nil {
		log.Printf("failed to ensure transactions table: %v", err)
	}
}

func ensureConflictsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS conflicts (
            id TEXT PRIMARY KEY,
            quest_id TEXT NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
            type TEXT NOT NULL CHECK (type IN ('REPORT_REJECTED', 'QUEST_CHANGED', 'DEADLINE_MISSED')),
            status TEXT NOT NULL CHECK (status IN ('OPEN', 'RESOLVED', 'CANCELLED')),
            raised_by TEXT NOT NULL,
            raised_by_role TEXT NOT NULL,
            npc_id TEXT NOT NULL,
            adventurer_id TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            escrowed_amount BIGINT NOT NULL DEFAULT 0 CHECK (escrowed_amount >= 0),
            resolution TEXT NOT NULL DEFAULT '',
            resolved_by TEXT NOT NULL DEFAULT '',
            resolved_at TIMESTAMP WITH TIME ZONE NULL,
            resolution_notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS idx_conflicts_quest_open ON conflicts(quest_id) WHERE status = 'OPEN';
        CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(status);
    `)
	if err != nil {
		log.Printf("failed to ensure conflicts table: %v", err)
	}
}

func ensureTopupsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS topups (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'failed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure topups table: %v", err)
	}
}

func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference TEXT NULL,
            metadata JSONB NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}

// ensureGuildTreasury seeds the system account that funds adjudication
// bonuses. Idempotent; the seed applies only when the wallet is first
// created.
func ensureGuildTreasury() {
	ctx := context.Background()

	seed := int64(1_000_000)
	if v := os.Getenv("TREASURY_SEED_GOLD"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed >= 0 {
			seed = parsed
		}
	}

	_, err := Conn.Exec(ctx, `
        INSERT INTO users (id, name, email, password, role)
        VALUES ('guild-treasury', 'Guild Treasury', 'treasury@guild.local', '', 'system')
        ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Printf("failed to seed treasury user: %v", err)
		return
	}
	_, err = Conn.Exec(ctx, `
        INSERT INTO wallets (user_id, balance) VALUES ('guild-treasury', $1)
        ON CONFLICT (user_id) DO NOTHING`, seed)
	if err != nil {
		log.Printf("failed to seed treasury wallet: %v", err)
		return
	}
	log.Println("Guild treasury ensured")
}
