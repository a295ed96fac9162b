package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests and operator tooling. Update
// stages every write against a deep copy of the state and swaps it in only
// when fn succeeds, matching the all-or-nothing contract of the Postgres
// store.
type MemStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	wallets      map[string]int64
	profiles     map[string]*Profile
	quests       map[string]*Quest
	escrows      map[string]*Escrow   // keyed by quest id
	conflicts    map[string]*Conflict // keyed by conflict id
	transactions []*Transaction
}

func newMemState() *memState {
	return &memState{
		wallets:   make(map[string]int64),
		profiles:  make(map[string]*Profile),
		quests:    make(map[string]*Quest),
		escrows:   make(map[string]*Escrow),
		conflicts: make(map[string]*Conflict),
	}
}

func NewMemStore() *MemStore {
	return &MemStore{st: newMemState()}
}

// SeedWallet creates or overwrites a wallet. This is the external top-up
// path for tests and tooling; it is deliberately not part of Tx.
func (m *MemStore) SeedWallet(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.wallets[userID] = balance
}

// SeedProfile installs a reputation snapshot for the user.
func (m *MemStore) SeedProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.st.profiles[p.UserID] = &cp
}

func (m *MemStore) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.st.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	m.st = staged
	return nil
}

func (m *MemStore) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// fn gets a copy, so stray writes cannot leak into committed state.
	return fn(&memTx{st: m.st.clone()})
}

func (s *memState) clone() *memState {
	c := &memState{
		wallets:      make(map[string]int64, len(s.wallets)),
		profiles:     make(map[string]*Profile, len(s.profiles)),
		quests:       make(map[string]*Quest, len(s.quests)),
		escrows:      make(map[string]*Escrow, len(s.escrows)),
		conflicts:    make(map[string]*Conflict, len(s.conflicts)),
		transactions: make([]*Transaction, len(s.transactions)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.profiles {
		p := *v
		c.profiles[k] = &p
	}
	for k, v := range s.quests {
		q := *v
		c.quests[k] = &q
	}
	for k, v := range s.escrows {
		e := *v
		c.escrows[k] = &e
	}
	for k, v := range s.conflicts {
		cf := *v
		c.conflicts[k] = &cf
	}
	copy(c.transactions, s.transactions)
	return c
}

type memTx struct {
	st *memState
}

func (t *memTx) Balance(userID string) (int64, error) {
	bal, ok := t.st.wallets[userID]
	if !ok {
		return 0, fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	return bal, nil
}

func (t *memTx) Credit(userID string, amount int64) error {
	if _, ok := t.st.wallets[userID]; !ok {
		return fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	t.st.wallets[userID] += amount
	return nil
}

func (t *memTx) Debit(userID string, amount int64) error {
	bal, ok := t.st.wallets[userID]
	if !ok {
		return fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	if bal < amount {
		return fmt.Errorf("wallet %s holds %d, need %d: %w", userID, bal, amount, ErrInsufficientFunds)
	}
	t.st.wallets[userID] = bal - amount
	return nil
}

func (t *memTx) QuestByID(questID string) (*Quest, error) {
	q, ok := t.st.quests[questID]
	if !ok {
		return nil, fmt.Errorf("quest %s: %w", questID, ErrNotFound)
	}
	cp := *q
	return &cp, nil
}

func (t *memTx) InsertQuest(q *Quest) error {
	if _, ok := t.st.quests[q.ID]; ok {
		return fmt.Errorf("quest %s: %w", q.ID, ErrDuplicateRecord)
	}
	cp := *q
	t.st.quests[q.ID] = &cp
	return nil
}

func (t *memTx) UpdateQuest(q *Quest, fromStatus string) error {
	cur, ok := t.st.quests[q.ID]
	if !ok {
		return fmt.Errorf("quest %s: %w", q.ID, ErrNotFound)
	}
	if cur.Status != fromStatus {
		return fmt.Errorf("quest %s is %s, not %s: %w", q.ID, cur.Status, fromStatus, ErrInvalidState)
	}
	cp := *q
	cp.UpdatedAt = time.Now()
	t.st.quests[q.ID] = &cp
	return nil
}

func (t *memTx) EscrowByQuest(questID string) (*Escrow, error) {
	e, ok := t.st.escrows[questID]
	if !ok {
		return nil, fmt.Errorf("escrow for quest %s: %w", questID, ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (t *memTx) ActiveEscrowsByNPC(npcID string) ([]Escrow, error) {
	var out []Escrow
	for _, e := range t.st.escrows {
		if e.NPCID == npcID && e.Status == EscrowActive {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) InsertEscrow(e *Escrow) error {
	if _, ok := t.st.escrows[e.QuestID]; ok {
		return fmt.Errorf("escrow for quest %s: %w", e.QuestID, ErrDuplicateRecord)
	}
	cp := *e
	t.st.escrows[e.QuestID] = &cp
	return nil
}

func (t *memTx) UpdateEscrow(e *Escrow, fromStatus EscrowStatus) error {
	cur, ok := t.st.escrows[e.QuestID]
	if !ok {
		return fmt.Errorf("escrow for quest %s: %w", e.QuestID, ErrNotFound)
	}
	if cur.Status != fromStatus {
		return fmt.Errorf("escrow for quest %s is %s, not %s: %w", e.QuestID, cur.Status, fromStatus, ErrInvalidState)
	}
	cp := *e
	t.st.escrows[e.QuestID] = &cp
	return nil
}

func (t *memTx) ConflictByID(id string) (*Conflict, error) {
	c, ok := t.st.conflicts[id]
	if !ok {
		return nil, fmt.Errorf("conflict %s: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) ConflictByQuest(questID string) (*Conflict, error) {
	var latest *Conflict
	for _, c := range t.st.conflicts {
		if c.QuestID != questID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("conflict for quest %s: %w", questID, ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (t *memTx) OpenConflicts() ([]Conflict, error) {
	var out []Conflict
	for _, c := range t.st.conflicts {
		if c.Status == ConflictOpen {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) InsertConflict(c *Conflict) error {
	for _, existing := range t.st.conflicts {
		if existing.QuestID == c.QuestID && existing.Status == ConflictOpen {
			return fmt.Errorf("open conflict for quest %s: %w", c.QuestID, ErrDuplicateRecord)
		}
	}
	cp := *c
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	t.st.conflicts[cp.ID] = &cp
	return nil
}

func (t *memTx) UpdateConflict(c *Conflict, fromStatus ConflictStatus) error {
	cur, ok := t.st.conflicts[c.ID]
	if !ok {
		return fmt.Errorf("conflict %s: %w", c.ID, ErrNotFound)
	}
	if cur.Status != fromStatus {
		return fmt.Errorf("conflict %s is %s, not %s: %w", c.ID, cur.Status, fromStatus, ErrInvalidState)
	}
	cp := *c
	t.st.conflicts[c.ID] = &cp
	return nil
}

func (t *memTx) InsertTransaction(tr *Transaction) error {
	cp := *tr
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	t.st.transactions = append(t.st.transactions, &cp)
	return nil
}

func (t *memTx) TransactionsByQuest(questID string) ([]Transaction, error) {
	var out []Transaction
	for _, tr := range t.st.transactions {
		if tr.QuestID == questID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (t *memTx) TransactionsByUser(userID string, limit, skip int) ([]Transaction, error) {
	var all []Transaction
	for _, tr := range t.st.transactions {
		if tr.FromUser == userID || tr.ToUser == userID {
			all = append(all, *tr)
		}
	}
	return paginateNewestFirst(all, limit, skip), nil
}

func (t *memTx) AllTransactions(limit, skip int) ([]Transaction, error) {
	all := make([]Transaction, 0, len(t.st.transactions))
	for _, tr := range t.st.transactions {
		all = append(all, *tr)
	}
	return paginateNewestFirst(all, limit, skip), nil
}

func (t *memTx) ProfileByID(userID string) (*Profile, error) {
	p, ok := t.st.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) UpdateProfile(p *Profile) error {
	if _, ok := t.st.profiles[p.UserID]; !ok {
		return fmt.Errorf("profile %s: %w", p.UserID, ErrNotFound)
	}
	cp := *p
	t.st.profiles[p.UserID] = &cp
	return nil
}

func paginateNewestFirst(all []Transaction, limit, skip int) []Transaction {
	// Journal order is insertion order; newest first for display.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if skip >= len(all) {
		return nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
