package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/squares/internal/kv"
)

type fixture struct {
	reg    *Registry
	states *StateStore
	flow   *Workflow
	table  Table
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := kv.NewMemory()
	reg := NewRegistry(mem, Config{})
	table, err := reg.CreateTable(context.Background(), validParams())
	require.NoError(t, err)
	return fixture{
		reg:    reg,
		states: NewStateStore(mem),
		flow:   NewWorkflow(mem),
		table:  table,
	}
}

// checkInvariant asserts owner==nil exactly for available boxes.
func checkInvariant(t *testing.T, st GameState) {
	t.Helper()
	for _, b := range st.Boxes {
		if b.Status == BoxAvailable && b.Owner != nil {
			t.Fatalf("box %d available but owned by %q", b.ID, *b.Owner)
		}
		if b.Status != BoxAvailable && b.Owner == nil {
			t.Fatalf("box %d is %s but has no owner", b.ID, b.Status)
		}
	}
}

func TestClaimBoxes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	claim, err := f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{0, 1})
	require.NoError(t, err)
	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, ClaimPending, claim.Status)
	assert.Equal(t, []int{0, 1}, claim.BoxIDs)

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	for _, id := range []int{0, 1} {
		require.Equal(t, BoxPending, st.Boxes[id].Status)
		require.NotNil(t, st.Boxes[id].Owner)
		assert.Equal(t, "Alice", *st.Boxes[id].Owner)
	}
	assert.Equal(t, BoxAvailable, st.Boxes[2].Status)
	checkInvariant(t, st)

	claims, err := f.flow.Claims(ctx, f.table.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, claim.ID, claims[0].ID)
}

func TestClaimBoxes_LockedTable(t *testing.T) {
	f := newFixture(t)
	f.table.Lock = Lock{Status: LockLocked, Reason: LockManual}

	_, err := f.flow.ClaimBoxes(context.Background(), f.table, "Alice", []int{0})
	require.ErrorIs(t, err, ErrTableLocked)
}

func TestClaimBoxes_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.flow.ClaimBoxes(ctx, f.table, "Bob", []int{4})
	require.NoError(t, err)

	// Box 4 is pending, so claiming [3,4,5] must change nothing at all.
	_, err = f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{3, 4, 5})
	require.ErrorIs(t, err, ErrBoxUnavailable)

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxAvailable, st.Boxes[3].Status)
	assert.Equal(t, BoxPending, st.Boxes[4].Status)
	assert.Equal(t, "Bob", *st.Boxes[4].Owner)
	assert.Equal(t, BoxAvailable, st.Boxes[5].Status)

	// No claim record for the failed submission either.
	claims, err := f.flow.Claims(ctx, f.table.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
}

func TestConfirmBoxes_OnlyPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{0, 1})
	require.NoError(t, err)

	// Confirming a set that includes available boxes touches only the
	// pending ones.
	require.NoError(t, f.flow.ConfirmBoxes(ctx, f.table.ID, []int{0, 7}))

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxConfirmed, st.Boxes[0].Status)
	assert.Equal(t, BoxPending, st.Boxes[1].Status)
	assert.Equal(t, BoxAvailable, st.Boxes[7].Status)
	checkInvariant(t, st)
}

func TestRejectBoxes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{0, 1})
	require.NoError(t, err)
	require.NoError(t, f.flow.ConfirmBoxes(ctx, f.table.ID, []int{0}))

	// Plain reject frees pending boxes but leaves confirmed ones alone.
	require.NoError(t, f.flow.RejectBoxes(ctx, f.table.ID, []int{0, 1}, false))

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxConfirmed, st.Boxes[0].Status)
	assert.Equal(t, BoxAvailable, st.Boxes[1].Status)
	assert.Nil(t, st.Boxes[1].Owner)

	// The revoke variant reverts confirmed boxes too.
	require.NoError(t, f.flow.RejectBoxes(ctx, f.table.ID, []int{0}, true))
	st, err = f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxAvailable, st.Boxes[0].Status)
	assert.Nil(t, st.Boxes[0].Owner)
	checkInvariant(t, st)
}

func TestConfirmAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{0, 1})
	require.NoError(t, err)
	_, err = f.flow.ClaimBoxes(ctx, f.table, "Bob", []int{50})
	require.NoError(t, err)

	require.NoError(t, f.flow.ConfirmAll(ctx, f.table.ID))

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	for _, id := range []int{0, 1, 50} {
		assert.Equal(t, BoxConfirmed, st.Boxes[id].Status)
	}
	for _, b := range st.Boxes {
		if b.Status == BoxPending {
			t.Fatalf("box %d still pending after ConfirmAll", b.ID)
		}
	}
}

func TestReveal_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.states.Reveal(ctx, f.table.ID))

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	require.True(t, st.NumbersRevealed)
	require.Len(t, st.RowNumbers, 10)
	require.Len(t, st.ColNumbers, 10)

	// A second reveal keeps the drawn numbers.
	require.NoError(t, f.states.Reveal(ctx, f.table.ID))
	st2, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, st.RowNumbers, st2.RowNumbers)
	assert.Equal(t, st.ColNumbers, st2.ColNumbers)
	assert.Equal(t, st.UpdatedAt, st2.UpdatedAt)
}

func TestState_MissingRecord(t *testing.T) {
	states := NewStateStore(kv.NewMemory())

	st, err := states.State(context.Background(), "nope")
	require.NoError(t, err)
	require.Len(t, st.Boxes, BoxCount)
	assert.False(t, st.NumbersRevealed)
}

// Full lifecycle from the product spec: create, claim, confirm, reject.
func TestClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.flow.ClaimBoxes(ctx, f.table, "Alice", []int{0, 1})
	require.NoError(t, err)

	st, err := f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxPending, st.Boxes[0].Status)
	assert.Equal(t, BoxPending, st.Boxes[1].Status)

	require.NoError(t, f.flow.ConfirmBoxes(ctx, f.table.ID, []int{0}))
	st, err = f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxConfirmed, st.Boxes[0].Status)
	assert.Equal(t, BoxPending, st.Boxes[1].Status)

	require.NoError(t, f.flow.RejectBoxes(ctx, f.table.ID, []int{1}, false))
	st, err = f.states.State(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, BoxConfirmed, st.Boxes[0].Status)
	assert.Equal(t, BoxAvailable, st.Boxes[1].Status)
	assert.Nil(t, st.Boxes[1].Owner)
	checkInvariant(t, st)

	// Box 1 can be claimed again after rejection.
	_, err = f.flow.ClaimBoxes(ctx, f.table, "Carol", []int{1})
	require.NoError(t, err)
}
