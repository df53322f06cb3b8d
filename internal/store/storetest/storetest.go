// Package storetest holds the conformance suite every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// Factory returns a fresh, empty store. It should register cleanup with t.
type Factory func(t *testing.T) store.Store

var (
	a = model.Ref("a")
	b = model.Ref("b")
	c = model.Ref("c")
)

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newStore(t)) })
	t.Run("UpdateAndDelete", func(t *testing.T) { testUpdateAndDelete(t, newStore(t)) })
	t.Run("MissingRecord", func(t *testing.T) { testMissingRecord(t, newStore(t)) })
	t.Run("QueryFilters", func(t *testing.T) { testQueryFilters(t, newStore(t)) })
	t.Run("TypedRefs", func(t *testing.T) { testTypedRefs(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("ReadOwnWrites", func(t *testing.T) { testReadOwnWrites(t, newStore(t)) })
}

func insert(t *testing.T, s store.Store, links ...model.Link) []model.Link {
	t.Helper()
	var out []model.Link
	err := s.Update(context.Background(), func(tx store.Tx) error {
		for _, l := range links {
			stored, err := tx.Insert(context.Background(), l)
			if err != nil {
				return err
			}
			out = append(out, stored)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func find(t *testing.T, s store.Store, q model.Query) []model.Link {
	t.Helper()
	var out []model.Link
	err := s.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.Find(context.Background(), q)
		return err
	})
	require.NoError(t, err)
	return out
}

func findOne(t *testing.T, s store.Store, q model.Query) *model.Link {
	t.Helper()
	var out *model.Link
	err := s.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.FindOne(context.Background(), q)
		return err
	})
	require.NoError(t, err)
	return out
}

func testInsertAndFind(t *testing.T, s store.Store) {
	stored := insert(t, s, model.Link{Ancestor: a, Descendant: b, Direct: true, Count: 1})
	require.Len(t, stored, 1)
	assert.NotZero(t, stored[0].ID)

	got := findOne(t, s, model.Pair(a, b))
	require.NotNil(t, got)
	assert.Equal(t, stored[0], *got)

	var byID *model.Link
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		var err error
		byID, err = tx.Get(context.Background(), stored[0].ID)
		return err
	}))
	require.NotNil(t, byID)
	assert.Equal(t, stored[0], *byID)
}

func testFindMissing(t *testing.T, s store.Store) {
	assert.Nil(t, findOne(t, s, model.Pair(a, b)))
	all := find(t, s, model.Query{})
	assert.NotNil(t, all)
	assert.Empty(t, all)

	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		l, err := tx.Get(context.Background(), 9999)
		assert.Nil(t, l)
		return err
	}))
}

func testDuplicateInsert(t *testing.T, s store.Store) {
	insert(t, s, model.Link{Ancestor: a, Descendant: b, Direct: true, Count: 1})

	err := s.Update(context.Background(), func(tx store.Tx) error {
		_, err := tx.Insert(context.Background(), model.Link{Ancestor: a, Descendant: b, Count: 1})
		return err
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func testUpdateAndDelete(t *testing.T, s store.Store) {
	stored := insert(t, s, model.Link{Ancestor: a, Descendant: b, Direct: false, Count: 1})[0]

	stored.Direct = true
	stored.Count = 2
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Update(context.Background(), stored)
	}))

	got := findOne(t, s, model.Pair(a, b))
	require.NotNil(t, got)
	assert.True(t, got.Direct)
	assert.Equal(t, int64(2), got.Count)
	assert.Equal(t, stored.ID, got.ID)

	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Delete(context.Background(), stored)
	}))
	assert.Nil(t, findOne(t, s, model.Pair(a, b)))
	assert.Empty(t, find(t, s, model.To(b)))
}

func testMissingRecord(t *testing.T, s store.Store) {
	ghost := model.Link{ID: 4242, Ancestor: a, Descendant: b, Count: 1}

	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Update(context.Background(), ghost)
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Delete(context.Background(), ghost)
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testQueryFilters(t *testing.T, s store.Store) {
	insert(t, s,
		model.Link{Ancestor: b, Descendant: c, Direct: true, Count: 1},
		model.Link{Ancestor: a, Descendant: b, Direct: true, Count: 1},
		model.Link{Ancestor: a, Descendant: c, Direct: false, Count: 1},
	)

	pairs := func(ls []model.Link) [][2]string {
		out := make([][2]string, len(ls))
		for i, l := range ls {
			out[i] = [2]string{l.Ancestor.ID, l.Descendant.ID}
		}
		return out
	}

	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}, pairs(find(t, s, model.Query{})))
	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}}, pairs(find(t, s, model.From(a))))
	assert.Equal(t, [][2]string{{"a", "c"}, {"b", "c"}}, pairs(find(t, s, model.To(c))))
	assert.Equal(t, [][2]string{{"b", "c"}}, pairs(find(t, s, model.To(c).WithDirect(model.DirectOnly))))
	assert.Equal(t, [][2]string{{"a", "c"}}, pairs(find(t, s, model.Query{Direct: model.IndirectOnly})))
	assert.Nil(t, findOne(t, s, model.Pair(a, c).WithDirect(model.DirectOnly)))
	assert.NotNil(t, findOne(t, s, model.Pair(a, c)))
}

func testTypedRefs(t *testing.T, s store.Store) {
	n1 := model.TypedRef("Node", "1")
	beta1 := model.TypedRef("Beta", "1")
	gamma1 := model.TypedRef("Gamma", "1")
	insert(t, s,
		model.Link{Ancestor: n1, Descendant: beta1, Direct: true, Count: 1},
		model.Link{Ancestor: n1, Descendant: gamma1, Direct: true, Count: 1},
	)

	assert.Len(t, find(t, s, model.From(n1)), 2)
	assert.Empty(t, find(t, s, model.From(model.Ref("1"))), "untyped ref is a different vertex")

	betas := find(t, s, model.Query{Ancestor: &n1, DescendantType: "Beta"})
	require.Len(t, betas, 1)
	assert.Equal(t, beta1, betas[0].Descendant)

	assert.Len(t, find(t, s, model.Query{AncestorType: "Node"}), 2)
	assert.Empty(t, find(t, s, model.Query{AncestorType: "Beta"}))
}

func testRollback(t *testing.T, s store.Store) {
	stored := insert(t, s, model.Link{Ancestor: a, Descendant: b, Direct: true, Count: 1})[0]

	boom := errors.New("boom")
	err := s.Update(context.Background(), func(tx store.Tx) error {
		if _, err := tx.Insert(context.Background(), model.Link{Ancestor: b, Descendant: c, Direct: true, Count: 1}); err != nil {
			return err
		}
		stored.Count = 5
		if err := tx.Update(context.Background(), stored); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Nil(t, findOne(t, s, model.Pair(b, c)))
	got := findOne(t, s, model.Pair(a, b))
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Count)
}

func testReadOwnWrites(t *testing.T, s store.Store) {
	err := s.Update(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		l, err := tx.Insert(ctx, model.Link{Ancestor: a, Descendant: b, Direct: true, Count: 1})
		if err != nil {
			return err
		}
		got, err := tx.FindOne(ctx, model.Pair(a, b))
		if err != nil {
			return err
		}
		require.NotNil(t, got)
		assert.Equal(t, l, *got)

		if err := tx.Delete(ctx, l); err != nil {
			return err
		}
		got, err = tx.FindOne(ctx, model.Pair(a, b))
		assert.Nil(t, got)
		return err
	})
	require.NoError(t, err)
}
