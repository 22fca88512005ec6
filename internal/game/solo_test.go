package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/squares/internal/kv"
)

func newSoloStore(t *testing.T, at time.Time) (*SoloStore, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	s := NewSoloStore(mem, SoloConfig{
		Name:        "Super Bowl Boxes",
		PricePerBox: 1,
		Currency:    "USD",
		Payouts:     Payouts{Q1: 20, Q2: 20, Q3: 20, Final: 40},
		KickoffAt:   testKickoff.UnixMilli(),
	}, Config{})
	s.now = func() time.Time { return at }
	return s, mem
}

func TestSoloSnapshot_Initializes(t *testing.T) {
	ctx := context.Background()
	s, _ := newSoloStore(t, testKickoff.Add(-24*time.Hour))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Super Bowl Boxes", snap.Table.Name)
	assert.Equal(t, LockOpen, snap.Table.Lock.Status)
	require.Len(t, snap.State.Boxes, BoxCount)
	assert.False(t, snap.State.NumbersRevealed)
}

func TestSoloSnapshot_AutoRules(t *testing.T) {
	ctx := context.Background()

	// Past the lock threshold but before reveal.
	s, _ := newSoloStore(t, testKickoff.Add(-10*time.Minute))
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, LockLocked, snap.Table.Lock.Status)
	assert.Equal(t, LockAuto, snap.Table.Lock.Reason)
	assert.False(t, snap.State.NumbersRevealed)

	// Past the reveal threshold.
	s.now = func() time.Time { return testKickoff.Add(-5 * time.Minute) }
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, snap.State.NumbersRevealed)
	require.Len(t, snap.State.RowNumbers, 10)
	require.Len(t, snap.State.ColNumbers, 10)

	// Numbers stay fixed on later reads.
	first := snap.State.RowNumbers
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, snap.State.RowNumbers)
}

func TestSoloSnapshot_NoWriteWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	s, mem := newSoloStore(t, testKickoff.Add(-24*time.Hour))

	_, err := s.Snapshot(ctx)
	require.NoError(t, err)
	before, ok, err := mem.Get(ctx, soloStateKey)
	require.NoError(t, err)
	require.True(t, ok)

	// Clock moves but no rule fires: polling must not rewrite the record.
	s.now = func() time.Time { return testKickoff.Add(-23 * time.Hour) }
	_, err = s.Snapshot(ctx)
	require.NoError(t, err)
	after, _, err := mem.Get(ctx, soloStateKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSoloClaim_SkipsTakenBoxes(t *testing.T) {
	ctx := context.Background()
	s, _ := newSoloStore(t, testKickoff.Add(-24*time.Hour))

	require.NoError(t, s.Claim(ctx, "Alice", []int{0, 1}))
	// The legacy store quietly skips box 1 instead of rejecting the batch.
	require.NoError(t, s.Claim(ctx, "Bob", []int{1, 2}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *snap.State.Boxes[1].Owner)
	assert.Equal(t, "Bob", *snap.State.Boxes[2].Owner)
	assert.Equal(t, BoxPending, snap.State.Boxes[2].Status)
}

func TestSoloClaim_Locked(t *testing.T) {
	s, _ := newSoloStore(t, testKickoff.Add(-time.Minute))
	err := s.Claim(context.Background(), "Alice", []int{0})
	require.ErrorIs(t, err, ErrTableLocked)
}

func TestSoloConfirmReject(t *testing.T) {
	ctx := context.Background()
	s, _ := newSoloStore(t, testKickoff.Add(-24*time.Hour))

	require.NoError(t, s.Claim(ctx, "Alice", []int{0, 1}))
	require.NoError(t, s.Confirm(ctx, []int{0}))
	require.NoError(t, s.Reject(ctx, []int{0, 1}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	// Reject only touches pending boxes; the confirmed one stays.
	assert.Equal(t, BoxConfirmed, snap.State.Boxes[0].Status)
	assert.Equal(t, BoxAvailable, snap.State.Boxes[1].Status)
	assert.Nil(t, snap.State.Boxes[1].Owner)
}

func TestSoloReveal_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSoloStore(t, testKickoff.Add(-24*time.Hour))

	require.NoError(t, s.Reveal(ctx))
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, snap.State.NumbersRevealed)
	first := snap.State.RowNumbers

	require.NoError(t, s.Reveal(ctx))
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, snap.State.RowNumbers)
}
