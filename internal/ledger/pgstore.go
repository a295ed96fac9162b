package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore backs the ledger with Postgres. Each Update runs inside one pgx
// transaction; wallet rows are locked FOR UPDATE and status transitions are
// conditional updates, so racing operations on the same quest serialize on
// the row and the loser fails its precondition instead of double-applying.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PGStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	return fn(&pgTx{ctx: ctx, tx: tx})
}

type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (t *pgTx) Balance(userID string) (int64, error) {
	var bal int64
	err := t.tx.QueryRow(t.ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return bal, nil
}

func (t *pgTx) Credit(userID string, amount int64) error {
	res, err := t.tx.Exec(t.ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) Debit(userID string, amount int64) error {
	var bal int64
	err := t.tx.QueryRow(t.ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("wallet %s holds %d, need %d: %w", userID, bal, amount, ErrInsufficientFunds)
	}
	_, err = t.tx.Exec(t.ctx,
		`UPDATE wallets SET balance = balance - $1 WHERE user_id = $2`, amount, userID)
	return err
}

const questColumns = `id, title, description, npc_id, adventurer_id, reward_gold, xp_reward,
	deadline, status, has_conflict, conflict_id, paid_gold, paid_at, created_at, updated_at`

func scanQuest(row pgx.Row) (*Quest, error) {
	var q Quest
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.NPCID, &q.AdventurerID,
		&q.RewardGold, &q.XPReward, &q.Deadline, &q.Status, &q.HasConflict,
		&q.ConflictID, &q.PaidGold, &q.PaidAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (t *pgTx) QuestByID(questID string) (*Quest, error) {
	q, err := scanQuest(t.tx.QueryRow(t.ctx,
		`SELECT `+questColumns+` FROM quests WHERE id = $1`, questID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("quest %s: %w", questID, ErrNotFound)
	}
	return q, err
}

func (t *pgTx) InsertQuest(q *Quest) error {
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO quests (id, title, description, npc_id, adventurer_id, reward_gold, xp_reward,
		   deadline, status, has_conflict, conflict_id, paid_gold, paid_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		q.ID, q.Title, q.Description, q.NPCID, q.AdventurerID, q.RewardGold, q.XPReward,
		q.Deadline, q.Status, q.HasConflict, q.ConflictID, q.PaidGold, q.PaidAt, q.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("quest %s: %w", q.ID, ErrDuplicateRecord)
	}
	return err
}

func (t *pgTx) UpdateQuest(q *Quest, fromStatus string) error {
	res, err := t.tx.Exec(t.ctx,
		`UPDATE quests SET title = $1, description = $2, adventurer_id = $3, status = $4,
		   has_conflict = $5, conflict_id = $6, paid_gold = $7, paid_at = $8, updated_at = NOW()
		 WHERE id = $9 AND status = $10`,
		q.Title, q.Description, q.AdventurerID, q.Status, q.HasConflict, q.ConflictID,
		q.PaidGold, q.PaidAt, q.ID, fromStatus)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, lookupErr := t.QuestByID(q.ID); lookupErr != nil {
			return lookupErr
		}
		return fmt.Errorf("quest %s not %s: %w", q.ID, fromStatus, ErrInvalidState)
	}
	return nil
}

const escrowColumns = `quest_id, npc_id, adventurer_id, amount, status, notes, created_at, released_at, refunded_at`

func scanEscrow(row pgx.Row) (*Escrow, error) {
	var e Escrow
	err := row.Scan(&e.QuestID, &e.NPCID, &e.AdventurerID, &e.Amount, &e.Status,
		&e.Notes, &e.CreatedAt, &e.ReleasedAt, &e.RefundedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *pgTx) EscrowByQuest(questID string) (*Escrow, error) {
	e, err := scanEscrow(t.tx.QueryRow(t.ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE quest_id = $1 FOR UPDATE`, questID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("escrow for quest %s: %w", questID, ErrNotFound)
	}
	return e, err
}

func (t *pgTx) ActiveEscrowsByNPC(npcID string) ([]Escrow, error) {
	rows, err := t.tx.Query(t.ctx,
		`SELECT `+escrowColumns+` FROM escrows
		 WHERE npc_id = $1 AND status = $2 ORDER BY created_at DESC`, npcID, EscrowActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertEscrow(e *Escrow) error {
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO escrows (quest_id, npc_id, adventurer_id, amount, status, notes, created_at, released_at, refunded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.QuestID, e.NPCID, e.AdventurerID, e.Amount, e.Status, e.Notes, e.CreatedAt, e.ReleasedAt, e.RefundedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("escrow for quest %s: %w", e.QuestID, ErrDuplicateRecord)
	}
	return err
}

func (t *pgTx) UpdateEscrow(e *Escrow, fromStatus EscrowStatus) error {
	res, err := t.tx.Exec(t.ctx,
		`UPDATE escrows SET adventurer_id = $1, status = $2, notes = $3, released_at = $4, refunded_at = $5
		 WHERE quest_id = $6 AND status = $7`,
		e.AdventurerID, e.Status, e.Notes, e.ReleasedAt, e.RefundedAt, e.QuestID, fromStatus)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, lookupErr := t.EscrowByQuest(e.QuestID); lookupErr != nil {
			return lookupErr
		}
		return fmt.Errorf("escrow for quest %s not %s: %w", e.QuestID, fromStatus, ErrInvalidState)
	}
	return nil
}

const conflictColumns = `id, quest_id, type, status, raised_by, raised_by_role, npc_id, adventurer_id,
	description, escrowed_amount, resolution, resolved_by, resolved_at, resolution_notes, created_at`

func scanConflict(row pgx.Row) (*Conflict, error) {
	var c Conflict
	err := row.Scan(&c.ID, &c.QuestID, &c.Type, &c.Status, &c.RaisedBy, &c.RaisedByRole,
		&c.NPCID, &c.AdventurerID, &c.Description, &c.EscrowedAmount, &c.Resolution,
		&c.ResolvedBy, &c.ResolvedAt, &c.ResolutionNotes, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) ConflictByID(id string) (*Conflict, error) {
	c, err := scanConflict(t.tx.QueryRow(t.ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conflict %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (t *pgTx) ConflictByQuest(questID string) (*Conflict, error) {
	c, err := scanConflict(t.tx.QueryRow(t.ctx,
		`SELECT `+conflictColumns+` FROM conflicts
		 WHERE quest_id = $1 ORDER BY created_at DESC LIMIT 1`, questID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conflict for quest %s: %w", questID, ErrNotFound)
	}
	return c, err
}

func (t *pgTx) OpenConflicts() ([]Conflict, error) {
	rows, err := t.tx.Query(t.ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE status = $1 ORDER BY created_at ASC`, ConflictOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertConflict(c *Conflict) error {
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO conflicts (id, quest_id, type, status, raised_by, raised_by_role, npc_id, adventurer_id,
		   description, escrowed_amount, resolution, resolved_by, resolved_at, resolution_notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.QuestID, c.Type, c.Status, c.RaisedBy, c.RaisedByRole, c.NPCID, c.AdventurerID,
		c.Description, c.EscrowedAmount, c.Resolution, c.ResolvedBy, c.ResolvedAt, c.ResolutionNotes, c.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("open conflict for quest %s: %w", c.QuestID, ErrDuplicateRecord)
	}
	return err
}

func (t *pgTx) UpdateConflict(c *Conflict, fromStatus ConflictStatus) error {
	res, err := t.tx.Exec(t.ctx,
		`UPDATE conflicts SET status = $1, resolution = $2, resolved_by = $3, resolved_at = $4, resolution_notes = $5
		 WHERE id = $6 AND status = $7`,
		c.Status, c.Resolution, c.ResolvedBy, c.ResolvedAt, c.ResolutionNotes, c.ID, fromStatus)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, lookupErr := t.ConflictByID(c.ID); lookupErr != nil {
			return lookupErr
		}
		return fmt.Errorf("conflict %s not %s: %w", c.ID, fromStatus, ErrInvalidState)
	}
	return nil
}

const txColumns = `id, quest_id, type, status, from_user, to_user, amount, description, metadata, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		tr   Transaction
		meta []byte
	)
	err := row.Scan(&tr.ID, &tr.QuestID, &tr.Type, &tr.Status, &tr.FromUser, &tr.ToUser,
		&tr.Amount, &tr.Description, &meta, &tr.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &tr.Metadata); err != nil {
			return nil, fmt.Errorf("transaction %s metadata: %w", tr.ID, err)
		}
	}
	return &tr, nil
}

func (t *pgTx) InsertTransaction(tr *Transaction) error {
	var meta []byte
	if tr.Metadata != nil {
		var err error
		meta, err = json.Marshal(tr.Metadata)
		if err != nil {
			return fmt.Errorf("transaction metadata: %w", err)
		}
	}
	_, err := t.tx.Exec(t.ctx,
		`INSERT INTO transactions (id, quest_id, type, status, from_user, to_user, amount, description, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tr.ID, tr.QuestID, tr.Type, tr.Status, tr.FromUser, tr.ToUser, tr.Amount, tr.Description, meta, tr.CreatedAt)
	return err
}

func (t *pgTx) collectTransactions(query string, args ...any) ([]Transaction, error) {
	rows, err := t.tx.Query(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tr)
	}
	return out, rows.Err()
}

func (t *pgTx) TransactionsByQuest(questID string) ([]Transaction, error) {
	return t.collectTransactions(
		`SELECT `+txColumns+` FROM transactions WHERE quest_id = $1 ORDER BY created_at ASC`, questID)
}

func (t *pgTx) TransactionsByUser(userID string, limit, skip int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.collectTransactions(
		`SELECT `+txColumns+` FROM transactions
		 WHERE from_user = $1 OR to_user = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, skip)
}

func (t *pgTx) AllTransactions(limit, skip int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.collectTransactions(
		`SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, skip)
}

func (t *pgTx) ProfileByID(userID string) (*Profile, error) {
	var p Profile
	err := t.tx.QueryRow(t.ctx,
		`SELECT id, rank, xp, priority_penalty FROM users WHERE id = $1 FOR UPDATE`, userID).
		Scan(&p.UserID, &p.Rank, &p.XP, &p.PriorityPenalty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) UpdateProfile(p *Profile) error {
	res, err := t.tx.Exec(t.ctx,
		`UPDATE users SET rank = $1, xp = $2, priority_penalty = $3 WHERE id = $4`,
		p.Rank, p.XP, p.PriorityPenalty, p.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", p.UserID, ErrNotFound)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
var _ Store = (*MemStore)(nil)
