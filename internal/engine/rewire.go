package engine

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
)

// leg is a closure record together with its count before the current pass.
// A leg whose count differs from before carries a pending change.
type leg struct {
	link   model.Link
	before int64
}

// settled returns a leg with no pending change.
func settled(l model.Link) leg {
	return leg{link: l, before: l.Count}
}

// flip returns the leg for l after its Direct flag is set to direct. The
// record's own path is added or retracted.
func flip(l model.Link, direct bool) leg {
	out := leg{link: l, before: l.Count}
	out.link.Direct = direct
	if direct {
		out.link.Count++
	} else {
		out.link.Count--
	}
	return out
}

func (l leg) delta() int64 { return l.link.Count - l.before }

// rewire propagates the flip of e through the closure table.
//
// Links ending at e's source and links starting at e's sink are read before
// anything is written. Every bridging leg is then written exactly once: the
// three families (above, sink), (source, below) and (above, below) never
// share a pair in an acyclic graph.
func (e *Engine) rewire(ctx context.Context, tx store.Tx, flipped leg) (passStats, error) {
	stats := passStats{promote: flipped.delta() > 0}
	if flipped.link.Direct && flipped.before == math.MaxInt64 {
		return stats, newCountOverflow(flipped.link, "adding the direct arc")
	}
	source, sink := e.resolver.FromRecord(flipped.link)
	passID := e.passIDs.Generate()

	ctx, span := tracer.Start(ctx, "dag.rewire", trace.WithAttributes(
		attribute.String("dag.pass_id", passID),
		attribute.String("dag.ancestor", source.String()),
		attribute.String("dag.descendant", sink.String()),
		attribute.Int64("dag.delta", flipped.delta()),
	))
	defer span.End()

	above, err := tx.Find(ctx, model.To(source))
	if err != nil {
		return stats, fmt.Errorf("rewire: links to source: %w", err)
	}
	below, err := tx.Find(ctx, model.From(sink))
	if err != nil {
		return stats, fmt.Errorf("rewire: links from sink: %w", err)
	}

	aboveBridges := make([]leg, 0, len(above))
	for _, a := range above {
		b, err := e.rewireCrossing(ctx, tx, settled(a), flipped)
		if err != nil {
			return stats, err
		}
		aboveBridges = append(aboveBridges, b)
	}

	for _, bl := range below {
		belowLeg := settled(bl)
		b, err := e.rewireCrossing(ctx, tx, flipped, belowLeg)
		if err != nil {
			return stats, err
		}
		if err := e.push(ctx, tx, flipped.link, b, &stats); err != nil {
			return stats, err
		}
		for _, ab := range aboveBridges {
			long, err := e.rewireCrossing(ctx, tx, ab, belowLeg)
			if err != nil {
				return stats, err
			}
			if err := e.push(ctx, tx, flipped.link, long, &stats); err != nil {
				return stats, err
			}
		}
	}

	for _, ab := range aboveBridges {
		if err := e.push(ctx, tx, flipped.link, ab, &stats); err != nil {
			return stats, err
		}
	}

	span.SetAttributes(
		attribute.Int("dag.above", len(above)),
		attribute.Int("dag.below", len(below)),
		attribute.Int("dag.legs", stats.total()),
	)
	e.logger.DebugContext(ctx, "rewiring pass",
		"pass", passID,
		"link", fmt.Sprintf("%s -> %s", source, sink),
		"delta", flipped.delta(),
		"above", len(above),
		"below", len(below),
		"inserted", stats.inserted,
		"updated", stats.updated,
		"deleted", stats.deleted,
	)
	return stats, nil
}

// rewireCrossing returns the bridging leg from above's ancestor to below's
// descendant with its count adjusted by the paths that run through both
// legs. Exactly one leg must carry a pending change.
func (e *Engine) rewireCrossing(ctx context.Context, tx store.Tx, above, below leg) (leg, error) {
	var (
		n  int64
		ok bool
	)
	switch da, db := above.delta(), below.delta(); {
	case da != 0 && db != 0:
		return leg{}, newInconsistentRewire(above.link, below.link, "both legs carry a pending count change")
	case da != 0:
		n, ok = mulCount(da, below.link.Count)
	case db != 0:
		n, ok = mulCount(above.link.Count, db)
	default:
		return leg{}, newInconsistentRewire(above.link, below.link, "neither leg carries a pending count change")
	}
	if !ok {
		return leg{}, newCountOverflow(model.Link{Ancestor: above.link.Ancestor, Descendant: below.link.Descendant},
			"paths through "+above.link.String()+" and "+below.link.String())
	}

	src, dst := above.link.Ancestor, below.link.Descendant
	cur, err := tx.FindOne(ctx, model.Pair(src, dst))
	if err != nil {
		return leg{}, fmt.Errorf("rewire: find bridging leg %s -> %s: %w", src, dst, err)
	}

	bridge := model.Link{Ancestor: src, Descendant: dst}
	if cur != nil {
		bridge = *cur
	}
	out := leg{link: bridge, before: bridge.Count}
	if out.link.Count, ok = addCount(bridge.Count, n); !ok {
		return leg{}, newCountOverflow(bridge, fmt.Sprintf("adding %d paths", n))
	}
	if out.link.Count < 0 {
		return leg{}, newInconsistentRewire(above.link, below.link,
			fmt.Sprintf("bridging leg count would drop to %d", out.link.Count))
	}
	return out, nil
}

// push writes a bridging leg: deleted at count zero, otherwise inserted or
// updated. It bypasses validation and never starts another pass.
func (e *Engine) push(ctx context.Context, tx store.Tx, self model.Link, b leg, stats *passStats) error {
	if b.link.SamePair(self) {
		return newSelfModification(self)
	}

	switch {
	case b.link.Count == 0:
		if !b.link.Persisted() {
			return nil
		}
		if err := tx.Delete(ctx, b.link); err != nil {
			return fmt.Errorf("rewire: delete %s -> %s: %w", b.link.Ancestor, b.link.Descendant, err)
		}
		stats.deleted++
	case b.link.Persisted():
		if err := tx.Update(ctx, b.link); err != nil {
			return fmt.Errorf("rewire: update %s -> %s: %w", b.link.Ancestor, b.link.Descendant, err)
		}
		stats.updated++
	default:
		if _, err := tx.Insert(ctx, b.link); err != nil {
			return fmt.Errorf("rewire: insert %s -> %s: %w", b.link.Ancestor, b.link.Descendant, err)
		}
		stats.inserted++
	}
	return nil
}
