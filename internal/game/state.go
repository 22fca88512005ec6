package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"example.com/squares/internal/kv"
)

const (
	casAttempts = 5
	casBackoff  = 2 * time.Millisecond
)

// errNoChange signals a mutation that decided to leave the state as-is.
var errNoChange = errors.New("state unchanged")

// StateStore owns the per-table grid state, 1:1 with table records.
type StateStore struct {
	store kv.KV
	now   func() time.Time
}

func NewStateStore(store kv.KV) *StateStore {
	return &StateStore{store: store, now: time.Now}
}

// State returns the stored grid, or a fresh empty one if the record is
// missing. Never errors on absence.
func (s *StateStore) State(ctx context.Context, tableID string) (GameState, error) {
	b, ok, err := s.store.Get(ctx, stateKey(tableID))
	if err != nil {
		return GameState{}, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return NewEmptyState(s.now().UnixMilli()), nil
	}
	var st GameState
	if err := json.Unmarshal(b, &st); err != nil {
		return GameState{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// SetState overwrites the grid and stamps updatedAt.
func (s *StateStore) SetState(ctx context.Context, tableID string, st GameState) error {
	st.UpdatedAt = s.now().UnixMilli()
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.store.Set(ctx, stateKey(tableID), b); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}

// Reveal draws the row/column digits. The flip is one-way: once revealed
// the numbers are fixed for the table's lifetime and further calls no-op.
func (s *StateStore) Reveal(ctx context.Context, tableID string) error {
	return updateState(ctx, s.store, tableID, s.now, func(st *GameState) error {
		if st.NumbersRevealed {
			return errNoChange
		}
		st.RowNumbers = ShuffledDigits()
		st.ColNumbers = ShuffledDigits()
		st.NumbersRevealed = true
		return nil
	})
}

// updateState runs mutate inside an optimistic read-modify-write on the
// state record, retrying on write contention. A missing record starts from
// the empty grid.
func updateState(ctx context.Context, store kv.KV, tableID string, now func() time.Time, mutate func(*GameState) error) error {
	backoff := retry.WithMaxRetries(casAttempts-1, retry.NewExponential(casBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := store.Update(ctx, stateKey(tableID), func(current []byte) ([]byte, error) {
			st := NewEmptyState(now().UnixMilli())
			if current != nil {
				if err := json.Unmarshal(current, &st); err != nil {
					return nil, fmt.Errorf("decode state: %w", err)
				}
			}
			if err := mutate(&st); err != nil {
				return nil, err
			}
			st.UpdatedAt = now().UnixMilli()
			return json.Marshal(&st)
		})
		if errors.Is(err, kv.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}
