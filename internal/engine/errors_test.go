package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

func TestInvariantError_Error(t *testing.T) {
	err := newNotDestroyable(model.Link{Ancestor: model.Ref("a"), Descendant: model.Ref("c"), Count: 2})
	assert.Equal(t, "NOT_DESTROYABLE: cannot destroy a link that other paths depend on (link=a -> c)", err.Error())
	assert.Equal(t, "2", err.Details["count"])

	bare := &InvariantError{Code: ErrCodeSelfModification, Message: "x"}
	assert.Equal(t, "SELF_MODIFICATION: x", bare.Error())
}

func TestInvariantError_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", newSelfModification(model.Link{}))
	assert.True(t, IsInvariantError(err))
	assert.True(t, HasInvariantCode(err, ErrCodeSelfModification))
	assert.False(t, HasInvariantCode(err, ErrCodeImmutableField))
	assert.False(t, IsInvariantError(errors.New("plain")))
}

func TestRewireCrossing_RequiresExactlyOneChange(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ab := model.Link{Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1}
	bc := model.Link{Ancestor: model.Ref("b"), Descendant: model.Ref("c"), Direct: true, Count: 1}

	err := e.Store().View(ctx, func(tx store.Tx) error {
		_, err := e.rewireCrossing(ctx, tx, settled(ab), settled(bc))
		assert.True(t, HasInvariantCode(err, ErrCodeInconsistentRewire), "neither: %v", err)

		_, err = e.rewireCrossing(ctx, tx, flip(ab, false), flip(bc, false))
		assert.True(t, HasInvariantCode(err, ErrCodeInconsistentRewire), "both: %v", err)

		// Retracting a path that was never counted.
		_, err = e.rewireCrossing(ctx, tx, settled(ab), flip(bc, false))
		assert.True(t, HasInvariantCode(err, ErrCodeInconsistentRewire), "negative: %v", err)

		b, err := e.rewireCrossing(ctx, tx, settled(ab), flip(model.Link{Ancestor: bc.Ancestor, Descendant: bc.Descendant, Direct: false}, true))
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.link.Count)
		assert.Equal(t, int64(0), b.before)
		assert.False(t, b.link.Persisted())
		assert.False(t, b.link.Direct)
		return nil
	})
	require.NoError(t, err)
}

func TestPush_RejectsSelfModification(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	self := model.Link{Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1}

	err := e.Store().Update(ctx, func(tx store.Tx) error {
		var stats passStats
		return e.push(ctx, tx, self, leg{link: self}, &stats)
	})
	assert.True(t, HasInvariantCode(err, ErrCodeSelfModification))
}

func TestPush_SkipsUnsavedZeroLeg(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	self := model.Link{Ancestor: model.Ref("a"), Descendant: model.Ref("b")}

	var stats passStats
	err := e.Store().Update(ctx, func(tx store.Tx) error {
		return e.push(ctx, tx, self, leg{link: model.Link{Ancestor: model.Ref("a"), Descendant: model.Ref("c")}}, &stats)
	})
	require.NoError(t, err)
	assert.Zero(t, stats.total())
}
