package model

import "fmt"

// Link is a closure record for one reachable ordered pair.
//
// ID is assigned by the store on insert and is zero for a record that has
// not been persisted yet.
type Link struct {
	ID         int64   `json:"id"`
	Ancestor   NodeRef `json:"ancestor"`
	Descendant NodeRef `json:"descendant"`
	Direct     bool    `json:"direct"`
	Count      int64   `json:"count"`
}

// Source returns the ancestor endpoint.
func (l Link) Source() NodeRef { return l.Ancestor }

// Sink returns the descendant endpoint.
func (l Link) Sink() NodeRef { return l.Descendant }

// Persisted reports whether the record has been stored.
func (l Link) Persisted() bool { return l.ID != 0 }

// SamePair reports whether l and other join the same ordered pair.
func (l Link) SamePair(other Link) bool {
	return l.Ancestor.Equal(other.Ancestor) && l.Descendant.Equal(other.Descendant)
}

// String renders l for logs and CLI text output.
func (l Link) String() string {
	kind := "indirect"
	if l.Direct {
		kind = "direct"
	}
	return fmt.Sprintf("%s -> %s (%s, count=%d)", l.Ancestor, l.Descendant, kind, l.Count)
}

// LessLink orders links by ancestor, then descendant.
func LessLink(a, b Link) bool {
	if !a.Ancestor.Equal(b.Ancestor) {
		return a.Ancestor.Less(b.Ancestor)
	}
	return a.Descendant.Less(b.Descendant)
}
