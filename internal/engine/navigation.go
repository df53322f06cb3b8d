package engine

import (
	"context"

	"github.com/roach88/dagclosure/internal/model"
)

// Ancestors returns every node that can reach n.
func (e *Engine) Ancestors(ctx context.Context, n any) ([]model.NodeRef, error) {
	return e.endpoints(ctx, n, toNode, "", model.AnyLink, ancestorOf)
}

// Descendants returns every node reachable from n.
func (e *Engine) Descendants(ctx context.Context, n any) ([]model.NodeRef, error) {
	return e.endpoints(ctx, n, fromNode, "", model.AnyLink, descendantOf)
}

// Parents returns the nodes with a direct arc into n.
func (e *Engine) Parents(ctx context.Context, n any) ([]model.NodeRef, error) {
	return e.endpoints(ctx, n, toNode, "", model.DirectOnly, ancestorOf)
}

// Children returns the nodes n has a direct arc to.
func (e *Engine) Children(ctx context.Context, n any) ([]model.NodeRef, error) {
	return e.endpoints(ctx, n, fromNode, "", model.DirectOnly, descendantOf)
}

// AncestorsOfType returns the ancestors of n tagged typ.
func (e *Engine) AncestorsOfType(ctx context.Context, n any, typ string) ([]model.NodeRef, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.endpoints(ctx, n, toNode, typ, model.AnyLink, ancestorOf)
}

// DescendantsOfType returns the descendants of n tagged typ.
func (e *Engine) DescendantsOfType(ctx context.Context, n any, typ string) ([]model.NodeRef, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.endpoints(ctx, n, fromNode, typ, model.AnyLink, descendantOf)
}

// ParentsOfType returns the parents of n tagged typ.
func (e *Engine) ParentsOfType(ctx context.Context, n any, typ string) ([]model.NodeRef, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.endpoints(ctx, n, toNode, typ, model.DirectOnly, ancestorOf)
}

// ChildrenOfType returns the children of n tagged typ.
func (e *Engine) ChildrenOfType(ctx context.Context, n any, typ string) ([]model.NodeRef, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.endpoints(ctx, n, fromNode, typ, model.DirectOnly, descendantOf)
}

// LinksAsAncestor returns the records that start at n.
func (e *Engine) LinksAsAncestor(ctx context.Context, n any) ([]model.Link, error) {
	return e.nodeLinks(ctx, n, fromNode, "", model.AnyLink)
}

// LinksAsDescendant returns the records that end at n.
func (e *Engine) LinksAsDescendant(ctx context.Context, n any) ([]model.Link, error) {
	return e.nodeLinks(ctx, n, toNode, "", model.AnyLink)
}

// LinksAsParent returns the direct records that start at n.
func (e *Engine) LinksAsParent(ctx context.Context, n any) ([]model.Link, error) {
	return e.nodeLinks(ctx, n, fromNode, "", model.DirectOnly)
}

// LinksAsChild returns the direct records that end at n.
func (e *Engine) LinksAsChild(ctx context.Context, n any) ([]model.Link, error) {
	return e.nodeLinks(ctx, n, toNode, "", model.DirectOnly)
}

// LinksAsAncestorOfType returns the records that start at n and end at a
// node tagged typ.
func (e *Engine) LinksAsAncestorOfType(ctx context.Context, n any, typ string) ([]model.Link, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.nodeLinks(ctx, n, fromNode, typ, model.AnyLink)
}

// LinksAsDescendantOfType returns the records that end at n and start at a
// node tagged typ.
func (e *Engine) LinksAsDescendantOfType(ctx context.Context, n any, typ string) ([]model.Link, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.nodeLinks(ctx, n, toNode, typ, model.AnyLink)
}

// LinksAsParentOfType is LinksAsAncestorOfType restricted to direct records.
func (e *Engine) LinksAsParentOfType(ctx context.Context, n any, typ string) ([]model.Link, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.nodeLinks(ctx, n, fromNode, typ, model.DirectOnly)
}

// LinksAsChildOfType is LinksAsDescendantOfType restricted to direct records.
func (e *Engine) LinksAsChildOfType(ctx context.Context, n any, typ string) ([]model.Link, error) {
	if !e.resolver.Polymorphic() {
		return nil, ErrHomogeneous
	}
	return e.nodeLinks(ctx, n, toNode, typ, model.DirectOnly)
}

// IsRoot reports whether nothing can reach n.
func (e *Engine) IsRoot(ctx context.Context, n any) (bool, error) {
	ls, err := e.LinksAsDescendant(ctx, n)
	return len(ls) == 0, err
}

// IsLeaf reports whether n reaches nothing.
func (e *Engine) IsLeaf(ctx context.Context, n any) (bool, error) {
	ls, err := e.LinksAsAncestor(ctx, n)
	return len(ls) == 0, err
}

// IsRootOfType reports whether no node tagged typ can reach n.
func (e *Engine) IsRootOfType(ctx context.Context, n any, typ string) (bool, error) {
	ls, err := e.LinksAsDescendantOfType(ctx, n, typ)
	if err != nil {
		return false, err
	}
	return len(ls) == 0, nil
}

// IsLeafOfType reports whether n reaches no node tagged typ.
func (e *Engine) IsLeafOfType(ctx context.Context, n any, typ string) (bool, error) {
	ls, err := e.LinksAsAncestorOfType(ctx, n, typ)
	if err != nil {
		return false, err
	}
	return len(ls) == 0, nil
}

type side int

const (
	fromNode side = iota
	toNode
)

func ancestorOf(l model.Link) model.NodeRef   { return l.Ancestor }
func descendantOf(l model.Link) model.NodeRef { return l.Descendant }

func (e *Engine) query(n any, s side, typ string, f model.DirectFilter) (model.Query, error) {
	ref, err := e.resolver.From(n)
	if err != nil {
		return model.Query{}, err
	}
	var q model.Query
	if s == fromNode {
		q = model.From(ref)
		q.DescendantType = typ
	} else {
		q = model.To(ref)
		q.AncestorType = typ
	}
	return q.WithDirect(f), nil
}

func (e *Engine) nodeLinks(ctx context.Context, n any, s side, typ string, f model.DirectFilter) ([]model.Link, error) {
	q, err := e.query(n, s, typ, f)
	if err != nil {
		return nil, err
	}
	return e.Links(ctx, q)
}

func (e *Engine) endpoints(ctx context.Context, n any, s side, typ string, f model.DirectFilter, pick func(model.Link) model.NodeRef) ([]model.NodeRef, error) {
	q, err := e.query(n, s, typ, f)
	if err != nil {
		return nil, err
	}
	links, err := e.Links(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.NodeRef, len(links))
	for i, l := range links {
		out[i] = pick(l)
	}
	return out, nil
}
