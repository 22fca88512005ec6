package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/squares/internal/kv"
)

// Workflow moves boxes through available -> pending -> confirmed. Every
// mutation checks the current box status inside the optimistic update, so
// concurrent claims or admin actions cannot overwrite each other.
type Workflow struct {
	store kv.KV
	now   func() time.Time
}

func NewWorkflow(store kv.KV) *Workflow {
	return &Workflow{store: store, now: time.Now}
}

// ClaimBoxes marks the given boxes pending for playerName and appends a
// claim record. All-or-nothing: if any box is not currently available the
// whole submission fails with ErrBoxUnavailable and nothing changes.
func (w *Workflow) ClaimBoxes(ctx context.Context, table Table, playerName string, boxIDs []int) (Claim, error) {
	if table.Lock.Status == LockLocked {
		return Claim{}, ErrTableLocked
	}

	err := updateState(ctx, w.store, table.ID, w.now, func(st *GameState) error {
		for _, id := range boxIDs {
			if id < 0 || id >= len(st.Boxes) {
				return fmt.Errorf("box %d: %w", id, ErrBoxUnavailable)
			}
			if st.Boxes[id].Status != BoxAvailable {
				return fmt.Errorf("box %d: %w", id, ErrBoxUnavailable)
			}
		}
		for _, id := range boxIDs {
			owner := playerName
			st.Boxes[id].Owner = &owner
			st.Boxes[id].Status = BoxPending
		}
		return nil
	})
	if err != nil {
		return Claim{}, err
	}

	now := w.now().UnixMilli()
	claim := Claim{
		ID:         uuid.NewString(),
		PlayerName: playerName,
		BoxIDs:     boxIDs,
		Status:     ClaimPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := w.appendClaim(ctx, table.ID, claim); err != nil {
		return Claim{}, err
	}
	return claim, nil
}

// ConfirmBoxes flips pending boxes in the set to confirmed. Boxes in the
// set that are not pending are left untouched.
func (w *Workflow) ConfirmBoxes(ctx context.Context, tableID string, boxIDs []int) error {
	set := idSet(boxIDs)
	return updateState(ctx, w.store, tableID, w.now, func(st *GameState) error {
		for i := range st.Boxes {
			if set[st.Boxes[i].ID] && st.Boxes[i].Status == BoxPending {
				st.Boxes[i].Status = BoxConfirmed
			}
		}
		return nil
	})
}

// ConfirmAll confirms every currently-pending box on the table.
func (w *Workflow) ConfirmAll(ctx context.Context, tableID string) error {
	return updateState(ctx, w.store, tableID, w.now, func(st *GameState) error {
		for i := range st.Boxes {
			if st.Boxes[i].Status == BoxPending {
				st.Boxes[i].Status = BoxConfirmed
			}
		}
		return nil
	})
}

// RejectBoxes reverts pending boxes in the set to available, freeing the
// square for reclaiming. With revoke set, confirmed boxes revert too (the
// admin-dashboard variant).
func (w *Workflow) RejectBoxes(ctx context.Context, tableID string, boxIDs []int, revoke bool) error {
	set := idSet(boxIDs)
	return updateState(ctx, w.store, tableID, w.now, func(st *GameState) error {
		for i := range st.Boxes {
			if !set[st.Boxes[i].ID] {
				continue
			}
			if st.Boxes[i].Status == BoxPending || (revoke && st.Boxes[i].Status == BoxConfirmed) {
				st.Boxes[i].Owner = nil
				st.Boxes[i].Status = BoxAvailable
			}
		}
		return nil
	})
}

// Claims returns the audit trail of claim submissions for a table.
func (w *Workflow) Claims(ctx context.Context, tableID string) ([]Claim, error) {
	b, ok, err := w.store.Get(ctx, claimsKey(tableID))
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var claims []Claim
	if err := json.Unmarshal(b, &claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}

func (w *Workflow) appendClaim(ctx context.Context, tableID string, claim Claim) error {
	err := w.store.Update(ctx, claimsKey(tableID), func(current []byte) ([]byte, error) {
		var claims []Claim
		if current != nil {
			if err := json.Unmarshal(current, &claims); err != nil {
				return nil, fmt.Errorf("decode claims: %w", err)
			}
		}
		return json.Marshal(append(claims, claim))
	})
	if err != nil {
		return fmt.Errorf("append claim: %w", err)
	}
	return nil
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
