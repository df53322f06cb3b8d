package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
	"github.com/roach88/dagclosure/internal/store/storetest"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openMemory(t) })
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	var first model.Link
	err = s.Update(ctx, func(tx store.Tx) error {
		var err error
		first, err = tx.Insert(ctx, model.Link{
			Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1,
		})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()

	var got *model.Link
	err = s.View(ctx, func(tx store.Tx) error {
		var err error
		got, err = tx.Get(ctx, first.ID)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, *got)

	var second model.Link
	err = s.Update(ctx, func(tx store.Tx) error {
		var err error
		second, err = tx.Insert(ctx, model.Link{
			Ancestor: model.Ref("b"), Descendant: model.Ref("c"), Direct: true, Count: 1,
		})
		return err
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID, "ids must not be reused after reopen")
}

func TestUpdate_RetriesOnConflict(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	calls := 0
	err := s.Update(ctx, func(tx store.Tx) error {
		calls++
		if calls == 1 {
			return badger.ErrConflict
		}
		_, err := tx.Insert(ctx, model.Link{
			Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestUpdate_RetriesExhausted(t *testing.T) {
	cfg := InMemoryConfig()
	cfg.MaxRetries = 2
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	calls := 0
	err = s.Update(context.Background(), func(store.Tx) error {
		calls++
		return badger.ErrConflict
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, badger.ErrConflict))
	assert.Equal(t, 3, calls)
}

func TestUpdate_TxnTooBigIsNotRetried(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	calls := 0
	err := s.Update(ctx, func(tx store.Tx) error {
		calls++
		if _, err := tx.Insert(ctx, model.Link{
			Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1,
		}); err != nil {
			return err
		}
		return fmt.Errorf("rewire: insert a -> c: %w", badger.ErrTxnTooBig)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTxnTooLarge)
	assert.ErrorIs(t, err, badger.ErrTxnTooBig)
	assert.Contains(t, err.Error(), "rewire: insert a -> c")
	assert.Equal(t, 1, calls)

	err = s.View(ctx, func(tx store.Tx) error {
		l, err := tx.FindOne(ctx, model.Pair(model.Ref("a"), model.Ref("b")))
		require.NoError(t, err)
		assert.Nil(t, l, "a failed update must not keep its writes")
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_ConcurrentWriters(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Update(ctx, func(tx store.Tx) error {
				_, err := tx.Insert(ctx, model.Link{
					Ancestor:   model.Ref("root"),
					Descendant: model.Ref(string(rune('a' + i))),
					Direct:     true,
					Count:      1,
				})
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var links []model.Link
	err := s.View(ctx, func(tx store.Tx) error {
		var err error
		links, err = tx.Find(ctx, model.From(model.Ref("root")))
		return err
	})
	require.NoError(t, err)
	assert.Len(t, links, 8)
}

func TestView_RejectsWrites(t *testing.T) {
	s := openMemory(t)
	err := s.View(context.Background(), func(tx store.Tx) error {
		_, err := tx.Insert(context.Background(), model.Link{
			Ancestor: model.Ref("a"), Descendant: model.Ref("b"), Direct: true, Count: 1,
		})
		return err
	})
	assert.ErrorIs(t, err, badger.ErrReadOnlyTxn)
}

func TestKeys_DistinguishTypes(t *testing.T) {
	untyped := forwardKey(model.Ref("1"), model.Ref("2"))
	typed := forwardKey(model.TypedRef("Widget", "1"), model.Ref("2"))
	assert.NotEqual(t, untyped, typed)
	assert.NotEqual(t, idKey(1), idKey(256))
}
