// Package node resolves client-supplied node handles into model.NodeRef
// values.
//
// Two resolvers exist. Homogeneous ignores type tags: every vertex lives in
// one collection and is identified by id alone. Polymorphic keeps the tag so
// heterogeneous collections can share one closure table.
package node

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dagclosure/internal/model"
)

var (
	// ErrEmptyID is returned when a handle resolves to an empty id.
	ErrEmptyID = errors.New("node id must not be empty")

	// ErrMissingType is returned by the polymorphic resolver when a handle
	// carries no type tag.
	ErrMissingType = errors.New("polymorphic node requires a type")

	// ErrInvalidChar is returned when an id or type contains a control
	// character. Stores use control characters as key separators.
	ErrInvalidChar = errors.New("node id or type contains a control character")

	// ErrUnsupported is returned for handles of an unknown Go type.
	ErrUnsupported = errors.New("unsupported node handle")
)

// Resource is a host value that can name itself as a vertex.
type Resource interface {
	NodeID() string
}

// TypedResource is a Resource that also reports its type tag. Polymorphic
// graphs use the tag; without it the Go type name is used.
type TypedResource interface {
	Resource
	NodeType() string
}

// Resolver coerces handles into refs and compares them.
type Resolver interface {
	// From coerces v into a ref. A model.NodeRef is normalized and returned,
	// so From is idempotent.
	From(v any) (model.NodeRef, error)

	// FromResource builds a ref from a host resource.
	FromResource(r Resource) (model.NodeRef, error)

	// FromRecord returns the source and sink refs of a closure record.
	FromRecord(l model.Link) (source, sink model.NodeRef)

	// Matches reports whether ref denotes the same vertex as other, which may
	// be a ref or any handle From accepts.
	Matches(ref model.NodeRef, other any) bool

	// Polymorphic reports whether type tags take part in identity.
	Polymorphic() bool
}

// New returns the resolver for the given graph kind.
func New(polymorphic bool) Resolver {
	if polymorphic {
		return Polymorphic{}
	}
	return Homogeneous{}
}

// Homogeneous identifies vertices by id alone.
type Homogeneous struct{}

func (Homogeneous) Polymorphic() bool { return false }

func (h Homogeneous) From(v any) (model.NodeRef, error) {
	switch n := v.(type) {
	case model.NodeRef:
		return clean(model.Ref(n.ID))
	case *model.NodeRef:
		if n == nil {
			return model.NodeRef{}, ErrEmptyID
		}
		return clean(model.Ref(n.ID))
	case Resource:
		return h.FromResource(n)
	case string:
		return clean(model.Ref(n))
	}
	if id, ok := integerID(v); ok {
		return clean(model.Ref(id))
	}
	return model.NodeRef{}, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func (Homogeneous) FromResource(r Resource) (model.NodeRef, error) {
	return clean(model.Ref(r.NodeID()))
}

func (Homogeneous) FromRecord(l model.Link) (model.NodeRef, model.NodeRef) {
	return model.Ref(l.Ancestor.ID), model.Ref(l.Descendant.ID)
}

func (h Homogeneous) Matches(ref model.NodeRef, other any) bool {
	o, err := h.From(other)
	if err != nil {
		return false
	}
	return ref.ID == o.ID
}

// Polymorphic identifies vertices by type tag and id.
//
// Plain strings are accepted in "type:id" form.
type Polymorphic struct{}

func (Polymorphic) Polymorphic() bool { return true }

func (p Polymorphic) From(v any) (model.NodeRef, error) {
	switch n := v.(type) {
	case model.NodeRef:
		return cleanTyped(n)
	case *model.NodeRef:
		if n == nil {
			return model.NodeRef{}, ErrEmptyID
		}
		return cleanTyped(*n)
	case Resource:
		return p.FromResource(n)
	case string:
		typ, id, ok := strings.Cut(n, ":")
		if !ok {
			return model.NodeRef{}, fmt.Errorf("%w: %q", ErrMissingType, n)
		}
		return cleanTyped(model.TypedRef(typ, id))
	}
	return model.NodeRef{}, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func (Polymorphic) FromResource(r Resource) (model.NodeRef, error) {
	typ := ""
	if tr, ok := r.(TypedResource); ok {
		typ = tr.NodeType()
	}
	if typ == "" {
		typ = typeName(r)
	}
	return cleanTyped(model.TypedRef(typ, r.NodeID()))
}

func (Polymorphic) FromRecord(l model.Link) (model.NodeRef, model.NodeRef) {
	return l.Ancestor, l.Descendant
}

func (p Polymorphic) Matches(ref model.NodeRef, other any) bool {
	o, err := p.From(other)
	if err != nil {
		return false
	}
	return ref.Equal(o)
}

func clean(r model.NodeRef) (model.NodeRef, error) {
	r.ID = norm.NFC.String(r.ID)
	r.Type = norm.NFC.String(r.Type)
	if r.ID == "" {
		return model.NodeRef{}, ErrEmptyID
	}
	if hasControl(r.ID) || hasControl(r.Type) {
		return model.NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidChar, r.String())
	}
	return r, nil
}

func cleanTyped(r model.NodeRef) (model.NodeRef, error) {
	r, err := clean(r)
	if err != nil {
		return r, err
	}
	if r.Type == "" {
		return model.NodeRef{}, fmt.Errorf("%w: %q", ErrMissingType, r.ID)
	}
	return r, nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

func integerID(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	}
	return "", false
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
