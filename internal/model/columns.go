package model

import (
	"fmt"
	"regexp"
	"strings"
)

// IDColumn is the primary key column of the link table. It is not
// configurable, so no role may use the name.
const IDColumn = "id"

// identPattern restricts configured table and column names to plain SQL
// identifiers so they can be spliced into statements.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Columns maps the logical roles of a closure record to storage names.
type Columns struct {
	Table          string `json:"table" yaml:"table"`
	AncestorID     string `json:"ancestor_id" yaml:"ancestor_id"`
	AncestorType   string `json:"ancestor_type" yaml:"ancestor_type"`
	DescendantID   string `json:"descendant_id" yaml:"descendant_id"`
	DescendantType string `json:"descendant_type" yaml:"descendant_type"`
	Direct         string `json:"direct" yaml:"direct"`
	Count          string `json:"count" yaml:"count"`
}

// DefaultColumns returns the standard naming.
func DefaultColumns() Columns {
	return Columns{
		Table:          "dag_links",
		AncestorID:     "ancestor_id",
		AncestorType:   "ancestor_type",
		DescendantID:   "descendant_id",
		DescendantType: "descendant_type",
		Direct:         "direct",
		Count:          "count",
	}
}

// WithDefaults fills every empty name from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Table, d.Table)
	fill(&c.AncestorID, d.AncestorID)
	fill(&c.AncestorType, d.AncestorType)
	fill(&c.DescendantID, d.DescendantID)
	fill(&c.DescendantType, d.DescendantType)
	fill(&c.Direct, d.Direct)
	fill(&c.Count, d.Count)
	return c
}

// Validate checks that every name is a plain identifier and that column
// names are distinct.
func (c Columns) Validate() error {
	names := []struct{ role, name string }{
		{"table", c.Table},
		{"ancestor_id", c.AncestorID},
		{"ancestor_type", c.AncestorType},
		{"descendant_id", c.DescendantID},
		{"descendant_type", c.DescendantType},
		{"direct", c.Direct},
		{"count", c.Count},
	}
	seen := make(map[string]string, len(names))
	for _, n := range names {
		if !identPattern.MatchString(n.name) {
			return fmt.Errorf("column %s: invalid identifier %q", n.role, n.name)
		}
		if n.role == "table" {
			continue
		}
		if strings.EqualFold(n.name, IDColumn) {
			return fmt.Errorf("column %s: name %q is reserved for the primary key", n.role, n.name)
		}
		if prev, ok := seen[n.name]; ok {
			return fmt.Errorf("column %s: name %q already used by %s", n.role, n.name, prev)
		}
		seen[n.name] = n.role
	}
	return nil
}
