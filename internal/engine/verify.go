package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// ErrCycle is returned by Verify when the direct arcs contain a cycle.
var ErrCycle = errors.New("direct arcs contain a cycle")

// DiscrepancyKind classifies a closure record that disagrees with the
// direct arcs.
type DiscrepancyKind string

const (
	// MissingLink means a reachable pair has no record.
	MissingLink DiscrepancyKind = "missing"

	// SpuriousLink means a record exists for an unreachable pair.
	SpuriousLink DiscrepancyKind = "spurious"

	// WrongCount means a record's count differs from the number of paths.
	WrongCount DiscrepancyKind = "count"
)

// Discrepancy is one disagreement found by Verify.
type Discrepancy struct {
	Kind       DiscrepancyKind `json:"kind"`
	Ancestor   model.NodeRef   `json:"ancestor"`
	Descendant model.NodeRef   `json:"descendant"`
	Want       int64           `json:"want"`
	Got        int64           `json:"got"`
}

// String renders d for logs and CLI text output.
func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: %s -> %s (want %d, got %d)", d.Kind, d.Ancestor, d.Descendant, d.Want, d.Got)
}

type pairKey struct {
	a, d model.NodeRef
}

// Verify recomputes every path count from the direct arcs and compares the
// result with the stored closure. An exact closure yields no discrepancies.
func (e *Engine) Verify(ctx context.Context) ([]Discrepancy, error) {
	ctx, span := tracer.Start(ctx, "dag.verify")
	defer span.End()

	var links []model.Link
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		links, err = tx.Find(ctx, model.Query{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	children := make(map[model.NodeRef][]model.NodeRef)
	for _, l := range links {
		if l.Direct {
			children[l.Ancestor] = append(children[l.Ancestor], l.Descendant)
		}
	}

	c := &pathCounter{
		children: children,
		memo:     make(map[model.NodeRef]map[model.NodeRef]int64),
		visiting: make(map[model.NodeRef]bool),
	}
	want := make(map[pairKey]int64)
	for src := range children {
		counts, err := c.count(src)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		for dst, n := range counts {
			want[pairKey{src, dst}] = n
		}
	}

	var out []Discrepancy
	seen := make(map[pairKey]bool, len(links))
	for _, l := range links {
		k := pairKey{l.Ancestor, l.Descendant}
		seen[k] = true
		n, ok := want[k]
		switch {
		case !ok:
			out = append(out, Discrepancy{Kind: SpuriousLink, Ancestor: l.Ancestor, Descendant: l.Descendant, Got: l.Count})
		case n != l.Count:
			out = append(out, Discrepancy{Kind: WrongCount, Ancestor: l.Ancestor, Descendant: l.Descendant, Want: n, Got: l.Count})
		}
	}
	for k, n := range want {
		if !seen[k] {
			out = append(out, Discrepancy{Kind: MissingLink, Ancestor: k.a, Descendant: k.d, Want: n})
		}
	}

	slices.SortFunc(out, func(x, y Discrepancy) int {
		switch {
		case model.LessLink(model.Link{Ancestor: x.Ancestor, Descendant: x.Descendant}, model.Link{Ancestor: y.Ancestor, Descendant: y.Descendant}):
			return -1
		case model.LessLink(model.Link{Ancestor: y.Ancestor, Descendant: y.Descendant}, model.Link{Ancestor: x.Ancestor, Descendant: x.Descendant}):
			return 1
		}
		return 0
	})

	if len(out) > 0 {
		e.logger.WarnContext(ctx, "closure verification failed", "discrepancies", len(out))
	}
	return out, nil
}

// pathCounter counts paths from a node to each of its descendants by
// memoized depth-first search.
type pathCounter struct {
	children map[model.NodeRef][]model.NodeRef
	memo     map[model.NodeRef]map[model.NodeRef]int64
	visiting map[model.NodeRef]bool
}

func (c *pathCounter) count(n model.NodeRef) (map[model.NodeRef]int64, error) {
	if m, ok := c.memo[n]; ok {
		return m, nil
	}
	if c.visiting[n] {
		return nil, fmt.Errorf("%w at %s", ErrCycle, n)
	}
	c.visiting[n] = true
	defer delete(c.visiting, n)

	out := make(map[model.NodeRef]int64)
	for _, child := range c.children[n] {
		sub, err := c.count(child)
		if err != nil {
			return nil, err
		}
		if err := c.add(out, n, child, 1); err != nil {
			return nil, err
		}
		for d, k := range sub {
			if err := c.add(out, n, d, k); err != nil {
				return nil, err
			}
		}
	}
	c.memo[n] = out
	return out, nil
}

func (c *pathCounter) add(out map[model.NodeRef]int64, from, to model.NodeRef, k int64) error {
	sum, ok := addCount(out[to], k)
	if !ok {
		return newCountOverflow(model.Link{Ancestor: from, Descendant: to}, "recounting paths")
	}
	out[to] = sum
	return nil
}
