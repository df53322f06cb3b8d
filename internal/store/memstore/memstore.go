// Package memstore is an in-process store.Store.
//
// Each Update works on a private copy of the link table and swaps it in on
// success, so a failed transaction leaves no trace. Writers are serialized;
// readers see the last committed table.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("write in read-only transaction")

type pairKey struct {
	ancestor, descendant model.NodeRef
}

type table struct {
	links  map[pairKey]model.Link
	byID   map[int64]pairKey
	nextID int64
}

func (t *table) clone() *table {
	return &table{
		links:  maps.Clone(t.links),
		byID:   maps.Clone(t.byID),
		nextID: t.nextID,
	}
}

// Store keeps closure links in memory.
type Store struct {
	mu    sync.RWMutex
	write sync.Mutex
	cur   *table
}

// New returns an empty store.
func New() *Store {
	return &Store{cur: &table{
		links: make(map[pairKey]model.Link),
		byID:  make(map[int64]pairKey),
	}}
}

// Update runs fn against a copy of the table and commits it if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.RLock()
	work := s.cur.clone()
	s.mu.RUnlock()

	if err := fn(&memTx{t: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	s.cur = work
	s.mu.Unlock()
	return nil
}

// View runs fn against the committed table.
func (s *Store) View(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.RLock()
	snap := s.cur
	s.mu.RUnlock()
	return fn(&memTx{t: snap, readOnly: true})
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Len returns the number of committed links.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cur.links)
}

type memTx struct {
	t        *table
	readOnly bool
}

func (tx *memTx) FindOne(ctx context.Context, q model.Query) (*model.Link, error) {
	if q.Ancestor != nil && q.Descendant != nil {
		l, ok := tx.t.links[pairKey{*q.Ancestor, *q.Descendant}]
		if !ok || !q.Matches(l) {
			return nil, nil
		}
		return &l, nil
	}
	found, err := tx.Find(ctx, q)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (tx *memTx) Find(ctx context.Context, q model.Query) ([]model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Link{}
	for _, l := range tx.t.links {
		if q.Matches(l) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(x, y model.Link) int {
		switch {
		case model.LessLink(x, y):
			return -1
		case model.LessLink(y, x):
			return 1
		}
		return 0
	})
	return out, nil
}

func (tx *memTx) Get(_ context.Context, id int64) (*model.Link, error) {
	k, ok := tx.t.byID[id]
	if !ok {
		return nil, nil
	}
	l := tx.t.links[k]
	return &l, nil
}

func (tx *memTx) Insert(_ context.Context, l model.Link) (model.Link, error) {
	if tx.readOnly {
		return model.Link{}, ErrReadOnly
	}
	k := pairKey{l.Ancestor, l.Descendant}
	if _, ok := tx.t.links[k]; ok {
		return model.Link{}, fmt.Errorf("insert link %s -> %s: %w", l.Ancestor, l.Descendant, store.ErrDuplicate)
	}
	tx.t.nextID++
	l.ID = tx.t.nextID
	tx.t.links[k] = l
	tx.t.byID[l.ID] = k
	return l, nil
}

func (tx *memTx) Update(_ context.Context, l model.Link) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	k, ok := tx.t.byID[l.ID]
	if !ok {
		return fmt.Errorf("update link %d: %w", l.ID, store.ErrNotFound)
	}
	cur := tx.t.links[k]
	cur.Direct = l.Direct
	cur.Count = l.Count
	tx.t.links[k] = cur
	return nil
}

func (tx *memTx) Delete(_ context.Context, l model.Link) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	k, ok := tx.t.byID[l.ID]
	if !ok {
		return fmt.Errorf("delete link %d: %w", l.ID, store.ErrNotFound)
	}
	delete(tx.t.links, k)
	delete(tx.t.byID, l.ID)
	return nil
}
