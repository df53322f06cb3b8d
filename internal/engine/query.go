package engine

import (
	"context"
	"fmt"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// FindEdge returns the record for (u, v) if it exists and is direct.
// It returns nil, nil otherwise.
func (e *Engine) FindEdge(ctx context.Context, u, v any) (*model.Link, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return nil, err
	}
	return e.findOne(ctx, model.Pair(src, dst).WithDirect(model.DirectOnly))
}

// FindLink returns the record for (u, v) regardless of directness.
// It returns nil, nil when the pair is not connected.
func (e *Engine) FindLink(ctx context.Context, u, v any) (*model.Link, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return nil, err
	}
	return e.findOne(ctx, model.Pair(src, dst))
}

// Connected reports whether v is reachable from u.
func (e *Engine) Connected(ctx context.Context, u, v any) (bool, error) {
	l, err := e.FindLink(ctx, u, v)
	return l != nil, err
}

// Direct reports whether there is a direct arc from u to v.
func (e *Engine) Direct(ctx context.Context, u, v any) (bool, error) {
	l, err := e.FindEdge(ctx, u, v)
	return l != nil, err
}

// Links lists every record matching q in store order.
func (e *Engine) Links(ctx context.Context, q model.Query) ([]model.Link, error) {
	var out []model.Link
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Find(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

func (e *Engine) findOne(ctx context.Context, q model.Query) (*model.Link, error) {
	var out *model.Link
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.FindOne(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return out, nil
}
