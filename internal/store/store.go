package store

import (
	"context"
	"errors"

	"github.com/roach88/dagclosure/internal/model"
)

var (
	// ErrNotFound is returned by Tx.Update and Tx.Delete when the record
	// does not exist.
	ErrNotFound = errors.New("link not found")

	// ErrDuplicate is returned by Tx.Insert when a record for the same
	// ordered pair already exists.
	ErrDuplicate = errors.New("link already exists")

	// ErrTxnTooLarge is returned by Store.Update when the backend cannot hold
	// every write of one mutation in a single transaction. Nothing is kept.
	ErrTxnTooLarge = errors.New("transaction too large")
)

// Store is a transactional record store for closure links.
//
// Update runs fn in one read-write transaction: if fn returns an error
// nothing it wrote is kept. View runs fn against a consistent snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the record-level interface available inside a transaction.
//
// FindOne returns nil, nil when nothing matches. Find returns links ordered
// by ancestor, then descendant (type before id), never nil.
type Tx interface {
	FindOne(ctx context.Context, q model.Query) (*model.Link, error)
	Find(ctx context.Context, q model.Query) ([]model.Link, error)
	Get(ctx context.Context, id int64) (*model.Link, error)
	Insert(ctx context.Context, l model.Link) (model.Link, error)
	Update(ctx context.Context, l model.Link) error
	Delete(ctx context.Context, l model.Link) error
}
