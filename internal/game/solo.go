package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"example.com/squares/internal/kv"
)

// SoloStore is the legacy single-table mode that predates table codes: one
// global grid under game:state, with table metadata coming from config
// instead of a registry record.

type SoloConfig struct {
	Name        string
	PricePerBox float64
	Currency    string
	Payouts     Payouts
	Rules       string
	KickoffAt   int64
}

// SoloTable is the config-derived metadata served next to the grid.
type SoloTable struct {
	Name        string  `json:"name"`
	PricePerBox float64 `json:"pricePerBox"`
	Currency    string  `json:"currency"`
	Payouts     Payouts `json:"payouts"`
	KickoffAt   int64   `json:"kickoffAt"`
	Lock        Lock    `json:"lock"`
	Rules       string  `json:"rules,omitempty"`
}

type SoloSnapshot struct {
	Table SoloTable `json:"table"`
	State GameState `json:"state"`
}

type soloRecord struct {
	State GameState `json:"state"`
	Lock  Lock      `json:"lock"`
}

type SoloStore struct {
	store kv.KV
	cfg   SoloConfig
	rules Config
	now   func() time.Time
}

func NewSoloStore(store kv.KV, cfg SoloConfig, rules Config) *SoloStore {
	return &SoloStore{
		store: store,
		cfg:   cfg,
		rules: rules.withDefaults(),
		now:   time.Now,
	}
}

// Snapshot returns table metadata plus grid state, applying auto-lock and
// auto-reveal as a read side effect. The record is persisted only when the
// rules actually changed it, so steady-state polling causes no writes.
func (s *SoloStore) Snapshot(ctx context.Context) (SoloSnapshot, error) {
	var rec soloRecord
	err := s.update(ctx, func(r *soloRecord, before []byte) ([]byte, error) {
		s.applyAutoRules(r)
		next, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		rec = *r
		if bytes.Equal(next, before) {
			return nil, nil
		}
		return next, nil
	})
	if err != nil {
		return SoloSnapshot{}, err
	}

	return SoloSnapshot{
		Table: SoloTable{
			Name:        s.cfg.Name,
			PricePerBox: s.cfg.PricePerBox,
			Currency:    s.cfg.Currency,
			Payouts:     s.cfg.Payouts,
			KickoffAt:   s.cfg.KickoffAt,
			Lock:        rec.Lock,
			Rules:       s.cfg.Rules,
		},
		State: rec.State,
	}, nil
}

// Claim marks the requested boxes pending. Unlike the registry workflow,
// the legacy mode quietly skips boxes that are no longer available.
func (s *SoloStore) Claim(ctx context.Context, playerName string, boxIDs []int) error {
	return s.update(ctx, func(r *soloRecord, _ []byte) ([]byte, error) {
		s.applyAutoRules(r)
		if r.Lock.Status == LockLocked {
			return nil, ErrTableLocked
		}
		for _, id := range boxIDs {
			if id < 0 || id >= len(r.State.Boxes) {
				continue
			}
			if r.State.Boxes[id].Status != BoxAvailable {
				continue
			}
			owner := playerName
			r.State.Boxes[id].Owner = &owner
			r.State.Boxes[id].Status = BoxPending
		}
		r.State.UpdatedAt = s.now().UnixMilli()
		return json.Marshal(r)
	})
}

func (s *SoloStore) Confirm(ctx context.Context, boxIDs []int) error {
	set := idSet(boxIDs)
	return s.update(ctx, func(r *soloRecord, _ []byte) ([]byte, error) {
		for i := range r.State.Boxes {
			if set[r.State.Boxes[i].ID] && r.State.Boxes[i].Status == BoxPending {
				r.State.Boxes[i].Status = BoxConfirmed
			}
		}
		r.State.UpdatedAt = s.now().UnixMilli()
		return json.Marshal(r)
	})
}

func (s *SoloStore) Reject(ctx context.Context, boxIDs []int) error {
	set := idSet(boxIDs)
	return s.update(ctx, func(r *soloRecord, _ []byte) ([]byte, error) {
		for i := range r.State.Boxes {
			if set[r.State.Boxes[i].ID] && r.State.Boxes[i].Status == BoxPending {
				r.State.Boxes[i].Owner = nil
				r.State.Boxes[i].Status = BoxAvailable
			}
		}
		r.State.UpdatedAt = s.now().UnixMilli()
		return json.Marshal(r)
	})
}

func (s *SoloStore) Reveal(ctx context.Context) error {
	return s.update(ctx, func(r *soloRecord, _ []byte) ([]byte, error) {
		if r.State.NumbersRevealed {
			return nil, nil
		}
		r.State.RowNumbers = ShuffledDigits()
		r.State.ColNumbers = ShuffledDigits()
		r.State.NumbersRevealed = true
		r.State.UpdatedAt = s.now().UnixMilli()
		return json.Marshal(r)
	})
}

func (s *SoloStore) applyAutoRules(r *soloRecord) {
	now := s.now().UnixMilli()
	if now >= s.cfg.KickoffAt-s.rules.AutoLockOffset.Milliseconds() && r.Lock.Status == LockOpen {
		r.Lock = Lock{Status: LockLocked, Reason: LockAuto, LockedAt: now}
	}
	if now >= s.cfg.KickoffAt-s.rules.RevealOffset.Milliseconds() && !r.State.NumbersRevealed {
		r.State.RowNumbers = ShuffledDigits()
		r.State.ColNumbers = ShuffledDigits()
		r.State.NumbersRevealed = true
		r.State.UpdatedAt = now
	}
}

func (s *SoloStore) update(ctx context.Context, mutate func(r *soloRecord, before []byte) ([]byte, error)) error {
	backoff := retry.WithMaxRetries(casAttempts-1, retry.NewExponential(casBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.store.Update(ctx, soloStateKey, func(current []byte) ([]byte, error) {
			rec := soloRecord{
				State: NewEmptyState(s.now().UnixMilli()),
				Lock:  Lock{Status: LockOpen},
			}
			if current != nil {
				if err := json.Unmarshal(current, &rec); err != nil {
					return nil, fmt.Errorf("decode solo state: %w", err)
				}
			}
			return mutate(&rec, current)
		})
		if errors.Is(err, kv.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
