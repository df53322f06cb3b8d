package model

// DirectFilter restricts a Query by the Direct flag.
type DirectFilter int

const (
	// AnyLink matches direct and indirect links.
	AnyLink DirectFilter = iota
	// DirectOnly matches explicitly authored arcs.
	DirectOnly
	// IndirectOnly matches derived links.
	IndirectOnly
)

// Query selects links from a store. Zero fields are unconstrained.
type Query struct {
	Ancestor   *NodeRef
	Descendant *NodeRef

	// AncestorType and DescendantType filter by type tag without fixing the id.
	AncestorType   string
	DescendantType string

	Direct DirectFilter
}

// Pair selects the link joining ancestor to descendant.
func Pair(ancestor, descendant NodeRef) Query {
	return Query{Ancestor: &ancestor, Descendant: &descendant}
}

// From selects every link starting at ancestor.
func From(ancestor NodeRef) Query {
	return Query{Ancestor: &ancestor}
}

// To selects every link ending at descendant.
func To(descendant NodeRef) Query {
	return Query{Descendant: &descendant}
}

// WithDirect returns a copy of q restricted by f.
func (q Query) WithDirect(f DirectFilter) Query {
	q.Direct = f
	return q
}

// Matches reports whether l satisfies q. Stores that scan in memory use it
// to apply the filter.
func (q Query) Matches(l Link) bool {
	if q.Ancestor != nil && !l.Ancestor.Equal(*q.Ancestor) {
		return false
	}
	if q.Descendant != nil && !l.Descendant.Equal(*q.Descendant) {
		return false
	}
	if q.AncestorType != "" && l.Ancestor.Type != q.AncestorType {
		return false
	}
	if q.DescendantType != "" && l.Descendant.Type != q.DescendantType {
		return false
	}
	switch q.Direct {
	case DirectOnly:
		return l.Direct
	case IndirectOnly:
		return !l.Direct
	}
	return true
}
