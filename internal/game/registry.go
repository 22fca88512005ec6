package game

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sethvargo/go-retry"

	"example.com/squares/internal/kv"
)

// Offsets before kickoff at which the auto rules fire.
const (
	DefaultAutoLockOffset = 15 * time.Minute
	DefaultRevealOffset   = 5 * time.Minute
)

// codeAlphabet drops ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength     = 6
	adminKeyLength = 8
	codeAttempts   = 5
)

// payoutTolerance absorbs float noise when checking the pot sum.
const payoutTolerance = 0.01

type Config struct {
	AutoLockOffset time.Duration
	RevealOffset   time.Duration
}

func (c Config) withDefaults() Config {
	if c.AutoLockOffset <= 0 {
		c.AutoLockOffset = DefaultAutoLockOffset
	}
	if c.RevealOffset <= 0 {
		c.RevealOffset = DefaultRevealOffset
	}
	return c
}

// Registry owns table records and the code/owner/all indexes.
type Registry struct {
	store kv.KV
	cfg   Config
	now   func() time.Time
}

func NewRegistry(store kv.KV, cfg Config) *Registry {
	return &Registry{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

type CreateTableParams struct {
	OwnerEmail  string
	Name        string
	PricePerBox float64
	Payouts     Payouts
	Rules       string
	Visibility  Visibility
	KickoffAt   int64
}

// CreateTable allocates a code, writes the table with its empty grid and
// indexes it under the owner's email and the global list. The payout sum
// must equal pricePerBox*100 within tolerance.
func (r *Registry) CreateTable(ctx context.Context, p CreateTableParams) (Table, error) {
	if math.Abs(p.Payouts.Total()-p.PricePerBox*float64(BoxCount)) > payoutTolerance {
		return Table{}, ErrPayoutMismatch
	}

	code, err := r.reserveCode(ctx)
	if err != nil {
		return Table{}, err
	}

	now := r.now().UnixMilli()
	table := Table{
		ID:          code,
		Code:        code,
		Name:        p.Name,
		OwnerEmail:  p.OwnerEmail,
		AdminKey:    randToken(adminKeyLength),
		PricePerBox: p.PricePerBox,
		Currency:    "USD",
		Payouts:     p.Payouts,
		Rules:       p.Rules,
		Visibility:  p.Visibility,
		KickoffAt:   p.KickoffAt,
		Lock:        Lock{Status: LockOpen},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b, err := json.Marshal(table)
	if err != nil {
		return Table{}, fmt.Errorf("marshal table: %w", err)
	}
	if err := r.store.Set(ctx, tableKey(table.ID), b); err != nil {
		return Table{}, fmt.Errorf("store table: %w", err)
	}

	state := NewEmptyState(now)
	sb, err := json.Marshal(state)
	if err != nil {
		return Table{}, fmt.Errorf("marshal state: %w", err)
	}
	if err := r.store.Set(ctx, stateKey(table.ID), sb); err != nil {
		return Table{}, fmt.Errorf("store state: %w", err)
	}

	if err := r.appendIndex(ctx, ownerTablesKey(p.OwnerEmail), table.ID); err != nil {
		return Table{}, err
	}
	if err := r.appendIndex(ctx, allTablesKey, table.ID); err != nil {
		return Table{}, err
	}

	return table, nil
}

// reserveCode claims a fresh code via SETNX on the code index, so two
// concurrent creations can never end up sharing one. After the attempt
// budget it fails loudly instead of risking a silent collision.
func (r *Registry) reserveCode(ctx context.Context) (string, error) {
	var code string
	backoff := retry.WithMaxRetries(codeAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := randToken(codeLength)
		ok, err := r.store.SetNX(ctx, codeKey(candidate), []byte(candidate))
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrCodeExhausted)
		}
		code = candidate
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *Registry) GetTableByCode(ctx context.Context, code string) (Table, error) {
	idB, ok, err := r.store.Get(ctx, codeKey(code))
	if err != nil {
		return Table{}, fmt.Errorf("load code index: %w", err)
	}
	if !ok {
		return Table{}, ErrNotFound
	}

	b, ok, err := r.store.Get(ctx, tableKey(string(idB)))
	if err != nil {
		return Table{}, fmt.Errorf("load table: %w", err)
	}
	if !ok {
		return Table{}, ErrNotFound
	}

	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return Table{}, fmt.Errorf("decode table: %w", err)
	}
	return t, nil
}

// UpdateTable overwrites the record and bumps updatedAt.
func (r *Registry) UpdateTable(ctx context.Context, t Table) (Table, error) {
	t.UpdatedAt = r.now().UnixMilli()
	b, err := json.Marshal(t)
	if err != nil {
		return Table{}, fmt.Errorf("marshal table: %w", err)
	}
	if err := r.store.Set(ctx, tableKey(t.ID), b); err != nil {
		return Table{}, fmt.Errorf("store table: %w", err)
	}
	return t, nil
}

func (r *Registry) ListTablesForOwner(ctx context.Context, email string) ([]Table, error) {
	return r.listByIndex(ctx, ownerTablesKey(email))
}

func (r *Registry) ListAllTables(ctx context.Context) ([]Table, error) {
	return r.listByIndex(ctx, allTablesKey)
}

func (r *Registry) listByIndex(ctx context.Context, indexKey string) ([]Table, error) {
	ids, err := r.readIndex(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = tableKey(id)
	}
	vals, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("mget tables: %w", err)
	}

	// An id present in the index but missing from the primary store is
	// dropped, not an error.
	tables := make([]Table, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		var t Table
		if err := json.Unmarshal(v, &t); err != nil {
			continue
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (r *Registry) readIndex(ctx context.Context, key string) ([]string, error) {
	b, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	return ids, nil
}

func (r *Registry) appendIndex(ctx context.Context, key, id string) error {
	err := r.store.Update(ctx, key, func(current []byte) ([]byte, error) {
		var ids []string
		if current != nil {
			if err := json.Unmarshal(current, &ids); err != nil {
				return nil, fmt.Errorf("decode index %s: %w", key, err)
			}
		}
		for _, existing := range ids {
			if existing == id {
				return nil, nil
			}
		}
		return json.Marshal(append(ids, id))
	})
	if err != nil {
		return fmt.Errorf("append index %s: %w", key, err)
	}
	return nil
}

// AutoLockAt is the instant the table locks itself before kickoff.
func (r *Registry) AutoLockAt(t Table) int64 {
	return t.KickoffAt - r.cfg.AutoLockOffset.Milliseconds()
}

// RevealAt is the instant row/column numbers are drawn.
func (r *Registry) RevealAt(t Table) int64 {
	return t.KickoffAt - r.cfg.RevealOffset.Milliseconds()
}

// ShouldAutoLock reports whether the table must lock now. A manual unlock
// at or past the threshold suppresses re-locking, otherwise every read
// would immediately undo the admin's unlock.
func (r *Registry) ShouldAutoLock(t Table, now int64) bool {
	autoLockAt := r.AutoLockAt(t)
	if now < autoLockAt {
		return false
	}
	if t.Lock.Status == LockLocked {
		return false
	}
	if t.Lock.UnlockedAt != 0 && t.Lock.UnlockedAt >= autoLockAt {
		return false
	}
	return true
}

func (r *Registry) ShouldAutoReveal(t Table, now int64) bool {
	return now >= r.RevealAt(t)
}

// AutoLockSweep force-locks every table past its threshold and returns how
// many it locked. Driven by the external cron endpoint.
func (r *Registry) AutoLockSweep(ctx context.Context, now int64) (int, error) {
	tables, err := r.ListAllTables(ctx)
	if err != nil {
		return 0, err
	}

	locked := 0
	for _, t := range tables {
		if !r.ShouldAutoLock(t, now) {
			continue
		}
		t.Lock = Lock{Status: LockLocked, Reason: LockAuto, LockedAt: now}
		if _, err := r.UpdateTable(ctx, t); err != nil {
			return locked, err
		}
		locked++
	}
	return locked, nil
}

// randToken draws from codeAlphabet; 32 symbols divide 256 evenly, so the
// byte modulo introduces no bias.
func randToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
