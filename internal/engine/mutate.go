package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/store"
	"github.com/roach88/dagclosure/internal/validate"
)

// BuildEdge returns an unsaved direct record from u to v with Count 0.
// Saving it adds the arc's own path.
func (e *Engine) BuildEdge(u, v any) (model.Link, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return model.Link{}, err
	}
	return model.Link{Ancestor: src, Descendant: dst, Direct: true}, nil
}

// Destroyable reports whether l can be removed without orphaning paths
// that still depend on it.
func (e *Engine) Destroyable(l model.Link) bool {
	return destroyable(l)
}

func destroyable(l model.Link) bool {
	return l.Count == 0 || (l.Direct && l.Count == 1)
}

// Connect adds a direct arc from u to v. An existing indirect record for
// the pair is promoted in place.
//
// Validation failures are returned as *validate.RejectedError.
func (e *Engine) Connect(ctx context.Context, u, v any) (model.Link, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return model.Link{}, err
	}

	var out model.Link
	err = e.mutate(ctx, "connect", pairAttrs(src, dst), func(tx store.Tx, m *mutation) error {
		cur, err := tx.FindOne(ctx, model.Pair(src, dst))
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if cur == nil {
			out, err = e.create(ctx, tx, m, model.Link{Ancestor: src, Descendant: dst, Direct: true})
			return err
		}
		after := *cur
		after.Direct = true
		out, err = e.update(ctx, tx, m, *cur, after)
		return err
	})
	if err != nil {
		return model.Link{}, err
	}
	return out, nil
}

// TryConnect is Connect that reports validation failures as false.
// Invariant and store errors are still returned.
func (e *Engine) TryConnect(ctx context.Context, u, v any) (bool, error) {
	_, err := e.Connect(ctx, u, v)
	return soft(err)
}

// Save stores a client-edited record.
//
// An unsaved record is created; it must be direct with Count 0, as built by
// BuildEdge. A stored record may only have its Direct flag changed.
func (e *Engine) Save(ctx context.Context, l model.Link) (model.Link, error) {
	l, err := e.normalize(l)
	if err != nil {
		return model.Link{}, err
	}

	var out model.Link
	err = e.mutate(ctx, "save", pairAttrs(l.Ancestor, l.Descendant), func(tx store.Tx, m *mutation) error {
		if !l.Persisted() {
			created, err := e.create(ctx, tx, m, l)
			out = created
			return err
		}
		stored, err := tx.Get(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("save link %d: %w", l.ID, ErrLinkNotFound)
		}
		if !stored.SamePair(l) {
			return newImmutableField(*stored, l)
		}
		out, err = e.update(ctx, tx, m, *stored, l)
		return err
	})
	if err != nil {
		return model.Link{}, err
	}
	return out, nil
}

// TrySave is Save that reports validation failures as false.
func (e *Engine) TrySave(ctx context.Context, l model.Link) (bool, error) {
	_, err := e.Save(ctx, l)
	return soft(err)
}

// SetDirect flips the Direct flag of the existing record for (u, v).
//
// Demoting a direct record that no other path supports is rejected with
// UnmakeableLonelyDirect; Disconnect removes it instead.
func (e *Engine) SetDirect(ctx context.Context, u, v any, direct bool) (model.Link, error) {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return model.Link{}, err
	}

	var out model.Link
	err = e.mutate(ctx, "set_direct", pairAttrs(src, dst), func(tx store.Tx, m *mutation) error {
		cur, err := tx.FindOne(ctx, model.Pair(src, dst))
		if err != nil {
			return fmt.Errorf("set direct: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("set direct %s -> %s: %w", src, dst, ErrLinkNotFound)
		}
		after := *cur
		after.Direct = direct
		out, err = e.update(ctx, tx, m, *cur, after)
		return err
	})
	if err != nil {
		return model.Link{}, err
	}
	return out, nil
}

// Destroy removes l. A direct record is demoted first, which retracts its
// own path from every record that used it.
//
// The stored version of l is used. Destroying a record that other paths
// still depend on fails with NOT_DESTROYABLE.
func (e *Engine) Destroy(ctx context.Context, l model.Link) error {
	l, err := e.normalize(l)
	if err != nil {
		return err
	}
	return e.mutate(ctx, "destroy", pairAttrs(l.Ancestor, l.Descendant), func(tx store.Tx, m *mutation) error {
		var stored *model.Link
		var err error
		if l.Persisted() {
			stored, err = tx.Get(ctx, l.ID)
		} else {
			stored, err = tx.FindOne(ctx, model.Pair(l.Ancestor, l.Descendant))
		}
		if err != nil {
			return fmt.Errorf("destroy: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("destroy %s -> %s: %w", l.Ancestor, l.Descendant, ErrLinkNotFound)
		}
		if !stored.SamePair(l) {
			return newImmutableField(*stored, l)
		}
		return e.destroy(ctx, tx, m, *stored)
	})
}

// Disconnect removes the record for (u, v).
func (e *Engine) Disconnect(ctx context.Context, u, v any) error {
	src, dst, err := e.resolvePair(u, v)
	if err != nil {
		return err
	}
	return e.mutate(ctx, "disconnect", pairAttrs(src, dst), func(tx store.Tx, m *mutation) error {
		cur, err := tx.FindOne(ctx, model.Pair(src, dst))
		if err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("disconnect %s -> %s: %w", src, dst, ErrLinkNotFound)
		}
		return e.destroy(ctx, tx, m, *cur)
	})
}

// TryDisconnect is Disconnect that reports an absent pair as false.
func (e *Engine) TryDisconnect(ctx context.Context, u, v any) (bool, error) {
	err := e.Disconnect(ctx, u, v)
	if errors.Is(err, ErrLinkNotFound) {
		return false, nil
	}
	return soft(err)
}

// create validates and stores a new record, rewiring when it is direct.
func (e *Engine) create(ctx context.Context, tx store.Tx, m *mutation, l model.Link) (model.Link, error) {
	vs, err := validate.Create(ctx, tx, l)
	if err != nil {
		return model.Link{}, err
	}
	// Indirect records only come from rewiring.
	if !l.Direct && l.Count >= 1 {
		vs = append(vs, validate.NewViolation(validate.ManualCountChange))
	}
	if err := validate.Reject("create", l, vs); err != nil {
		return model.Link{}, err
	}

	flipped := flip(l, true)
	stats, err := e.rewire(ctx, tx, flipped)
	if err != nil {
		return model.Link{}, err
	}
	m.passes = append(m.passes, stats)

	stored, err := tx.Insert(ctx, flipped.link)
	if err != nil {
		return model.Link{}, fmt.Errorf("create %s -> %s: %w", l.Ancestor, l.Descendant, err)
	}
	return stored, nil
}

// update validates a client change to a stored record and applies it.
func (e *Engine) update(ctx context.Context, tx store.Tx, m *mutation, before, after model.Link) (model.Link, error) {
	vs := validate.Update(before, after)
	if before.Direct == after.Direct && before.Count != after.Count {
		vs = append(vs, validate.NewViolation(validate.ManualCountChange))
	}
	if err := validate.Reject("update", after, vs); err != nil {
		return model.Link{}, err
	}

	flipped := flip(before, after.Direct)
	stats, err := e.rewire(ctx, tx, flipped)
	if err != nil {
		return model.Link{}, err
	}
	m.passes = append(m.passes, stats)

	if err := tx.Update(ctx, flipped.link); err != nil {
		return model.Link{}, fmt.Errorf("update %s -> %s: %w", before.Ancestor, before.Descendant, err)
	}
	return flipped.link, nil
}

// destroy demotes l if it is direct and deletes it.
func (e *Engine) destroy(ctx context.Context, tx store.Tx, m *mutation, l model.Link) error {
	if !destroyable(l) {
		return newNotDestroyable(l)
	}
	if l.Direct {
		flipped := flip(l, false)
		stats, err := e.rewire(ctx, tx, flipped)
		if err != nil {
			return err
		}
		m.passes = append(m.passes, stats)
		l = flipped.link
	}
	if err := tx.Delete(ctx, l); err != nil {
		return fmt.Errorf("destroy %s -> %s: %w", l.Ancestor, l.Descendant, err)
	}
	return nil
}

// soft maps a validation rejection to false, nil.
func soft(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if validate.IsRejected(err) {
		return false, nil
	}
	return false, err
}
