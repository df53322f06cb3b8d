package model

import "fmt"

// NodeRef identifies a graph vertex.
//
// Type is the discriminant of a polymorphic graph and is empty in a
// homogeneous one. Two refs are equal iff both ID and Type match.
type NodeRef struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Ref builds a NodeRef for a homogeneous graph.
func Ref(id string) NodeRef {
	return NodeRef{ID: id}
}

// TypedRef builds a NodeRef for a polymorphic graph.
func TypedRef(typ, id string) NodeRef {
	return NodeRef{ID: id, Type: typ}
}

// Equal reports whether r and other denote the same vertex.
func (r NodeRef) Equal(other NodeRef) bool {
	return r.ID == other.ID && r.Type == other.Type
}

// IsZero reports whether r carries no identity.
func (r NodeRef) IsZero() bool {
	return r.ID == "" && r.Type == ""
}

// String renders r as "id" or "type:id".
func (r NodeRef) String() string {
	if r.Type == "" {
		return r.ID
	}
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// Less orders refs by type, then id. Used for deterministic listings.
func (r NodeRef) Less(other NodeRef) bool {
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.ID < other.ID
}
