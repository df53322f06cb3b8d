// Package badgerstore is a store.Store backed by BadgerDB.
//
// Key layout (node keys are "type\x1fid"):
//
//	l\x1e<ancestor>\x1e<descendant>  -> JSON link
//	r\x1e<descendant>\x1e<ancestor>  -> forward key (reverse index)
//	i\x1e<big-endian id>             -> forward key (id index)
//
// Badger transactions are optimistic. Update retries the whole function
// when a concurrent writer commits a conflicting key first.
//
// One mutation is one Badger transaction, and Badger caps the size of a
// transaction at a fraction of the memtable. Connecting two large
// components can exceed it; Update then fails with store.ErrTxnTooLarge
// and writes nothing.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

const (
	sep     = 0x1e
	nodeSep = 0x1f

	// DefaultMaxRetries bounds the conflict retries of one Update.
	DefaultMaxRetries = 5

	seqLease = 100
)

var (
	prefixLink    = []byte{'l', sep}
	prefixReverse = []byte{'r', sep}
	prefixID      = []byte{'i', sep}
	seqKey        = []byte("seq/link")
)

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger

	// MaxRetries bounds conflict retries per Update. Zero means DefaultMaxRetries.
	MaxRetries int
}

// DefaultConfig returns durable defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, MaxRetries: DefaultMaxRetries}
}

// InMemoryConfig returns configuration suited to tests.
func InMemoryConfig() Config {
	return Config{InMemory: true, MaxRetries: DefaultMaxRetries}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store keeps closure links in BadgerDB.
type Store struct {
	db         *badger.DB
	seq        *badger.Sequence
	maxRetries int
}

// Open opens a BadgerDB instance with the given configuration.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := db.GetSequence(seqKey, seqLease)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	return &Store{db: db, seq: seq, maxRetries: retries}, nil
}

// Close releases the id sequence and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	relErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return relErr
}

// Update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn, seq: s.seq})
		})
		if errors.Is(err, badger.ErrTxnTooBig) {
			return fmt.Errorf("update: %w: %w", store.ErrTxnTooLarge, err)
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("update: retries exhausted: %w", err)
}

// View runs fn in a read-only transaction.
func (s *Store) View(_ context.Context, fn func(tx store.Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, seq: s.seq})
	})
}

func nodeKey(n model.NodeRef) []byte {
	k := make([]byte, 0, len(n.Type)+len(n.ID)+1)
	k = append(k, n.Type...)
	k = append(k, nodeSep)
	return append(k, n.ID...)
}

func forwardKey(a, d model.NodeRef) []byte {
	return slices.Concat(prefixLink, nodeKey(a), []byte{sep}, nodeKey(d))
}

func reverseKey(a, d model.NodeRef) []byte {
	return slices.Concat(prefixReverse, nodeKey(d), []byte{sep}, nodeKey(a))
}

func idKey(id int64) []byte {
	k := slices.Clone(prefixID)
	return binary.BigEndian.AppendUint64(k, uint64(id))
}

type badgerTx struct {
	txn *badger.Txn
	seq *badger.Sequence
}

func (tx *badgerTx) getForward(key []byte) (*model.Link, error) {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l model.Link
	if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &l) }); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &l, nil
}

func (tx *badgerTx) getIndexed(key []byte) (*model.Link, error) {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fwd, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return tx.getForward(fwd)
}

func (tx *badgerTx) FindOne(ctx context.Context, q model.Query) (*model.Link, error) {
	if q.Ancestor != nil && q.Descendant != nil {
		l, err := tx.getForward(forwardKey(*q.Ancestor, *q.Descendant))
		if err != nil {
			return nil, fmt.Errorf("find link: %w", err)
		}
		if l == nil || !q.Matches(*l) {
			return nil, nil
		}
		return l, nil
	}
	found, err := tx.Find(ctx, q)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (tx *badgerTx) Find(ctx context.Context, q model.Query) ([]model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefix []byte
	reverse := false
	switch {
	case q.Ancestor != nil:
		prefix = slices.Concat(prefixLink, nodeKey(*q.Ancestor), []byte{sep})
	case q.Descendant != nil:
		prefix = slices.Concat(prefixReverse, nodeKey(*q.Descendant), []byte{sep})
		reverse = true
	default:
		prefix = prefixLink
	}

	it := tx.txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: !reverse})
	defer it.Close()

	out := []model.Link{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var l *model.Link
		var err error
		if reverse {
			fwd, verr := it.Item().ValueCopy(nil)
			if verr != nil {
				return nil, fmt.Errorf("read reverse index: %w", verr)
			}
			l, err = tx.getForward(fwd)
		} else {
			var dec model.Link
			err = it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &dec) })
			l = &dec
		}
		if err != nil {
			return nil, fmt.Errorf("query links: %w", err)
		}
		if l != nil && q.Matches(*l) {
			out = append(out, *l)
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

func (tx *badgerTx) Get(_ context.Context, id int64) (*model.Link, error) {
	l, err := tx.getIndexed(idKey(id))
	if err != nil {
		return nil, fmt.Errorf("get link %d: %w", id, err)
	}
	return l, nil
}

func (tx *badgerTx) put(l model.Link) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	return tx.txn.Set(forwardKey(l.Ancestor, l.Descendant), data)
}

func (tx *badgerTx) Insert(_ context.Context, l model.Link) (model.Link, error) {
	fwd := forwardKey(l.Ancestor, l.Descendant)
	existing, err := tx.getForward(fwd)
	if err != nil {
		return model.Link{}, fmt.Errorf("insert link: %w", err)
	}
	if existing != nil {
		return model.Link{}, fmt.Errorf("insert link %s -> %s: %w", l.Ancestor, l.Descendant, store.ErrDuplicate)
	}

	next, err := tx.seq.Next()
	if err != nil {
		return model.Link{}, fmt.Errorf("insert link: next id: %w", err)
	}
	l.ID = int64(next) + 1

	if err := tx.put(l); err != nil {
		return model.Link{}, fmt.Errorf("insert link: %w", err)
	}
	if err := tx.txn.Set(reverseKey(l.Ancestor, l.Descendant), fwd); err != nil {
		return model.Link{}, fmt.Errorf("insert link: reverse index: %w", err)
	}
	if err := tx.txn.Set(idKey(l.ID), fwd); err != nil {
		return model.Link{}, fmt.Errorf("insert link: id index: %w", err)
	}
	return l, nil
}

func (tx *badgerTx) Update(ctx context.Context, l model.Link) error {
	cur, err := tx.Get(ctx, l.ID)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("update link %d: %w", l.ID, store.ErrNotFound)
	}
	cur.Direct = l.Direct
	cur.Count = l.Count
	if err := tx.put(*cur); err != nil {
		return fmt.Errorf("update link %d: %w", l.ID, err)
	}
	return nil
}

func (tx *badgerTx) Delete(ctx context.Context, l model.Link) error {
	cur, err := tx.Get(ctx, l.ID)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("delete link %d: %w", l.ID, store.ErrNotFound)
	}
	for _, k := range [][]byte{
		forwardKey(cur.Ancestor, cur.Descendant),
		reverseKey(cur.Ancestor, cur.Descendant),
		idKey(cur.ID),
	} {
		if err := tx.txn.Delete(k); err != nil {
			return fmt.Errorf("delete link %d: %w", l.ID, err)
		}
	}
	return nil
}
