package engine

import (
	"context"
	"fmt"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// LongestPathBetween returns the nodes on a longest chain of direct arcs
// from u to v, excluding u and ending with v. It returns an empty slice when
// v is not reachable from u.
//
// Only children that can still reach v are followed. Among equally long
// candidates the first child in store order wins.
func (e *Engine) LongestPathBetween(ctx context.Context, u, v any) ([]model.NodeRef, error) {
	return e.pathBetween(ctx, u, v, func(cand, best int) bool { return cand > best })
}

// ShortestPathBetween is LongestPathBetween for the fewest arcs.
func (e *Engine) ShortestPathBetween(ctx context.Context, u, v any) ([]model.NodeRef, error) {
	return e.pathBetween(ctx, u, v, func(cand, best int) bool { return cand < best })
}

func (e *Engine) pathBetween(ctx context.Context, u, v any, better func(cand, best int) bool) ([]model.NodeRef, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return nil, err
	}

	var out []model.NodeRef
	err = e.view(ctx, func(tx store.Tx) error {
		w := &pathWalker{
			tx:     tx,
			target: dst,
			better: better,
			memo:   make(map[model.NodeRef][]model.NodeRef),
		}
		var err error
		out, err = w.walk(ctx, src)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("path %s -> %s: %w", src, dst, err)
	}
	if out == nil {
		out = []model.NodeRef{}
	}
	return out, nil
}

// pathWalker memoizes the best suffix from each visited node to target.
type pathWalker struct {
	tx     store.Tx
	target model.NodeRef
	better func(cand, best int) bool
	memo   map[model.NodeRef][]model.NodeRef
}

func (w *pathWalker) walk(ctx context.Context, n model.NodeRef) ([]model.NodeRef, error) {
	if p, ok := w.memo[n]; ok {
		return p, nil
	}

	children, err := w.tx.Find(ctx, model.From(n).WithDirect(model.DirectOnly))
	if err != nil {
		return nil, err
	}

	var best []model.NodeRef
	for _, c := range children {
		child := c.Descendant
		var cand []model.NodeRef
		if child.Equal(w.target) {
			cand = []model.NodeRef{child}
		} else {
			reach, err := w.tx.FindOne(ctx, model.Pair(child, w.target))
			if err != nil {
				return nil, err
			}
			if reach == nil {
				continue
			}
			rest, err := w.walk(ctx, child)
			if err != nil {
				return nil, err
			}
			if len(rest) == 0 {
				continue
			}
			cand = append([]model.NodeRef{child}, rest...)
		}
		if best == nil || w.better(len(cand), len(best)) {
			best = cand
		}
	}

	w.memo[n] = best
	return best, nil
}
