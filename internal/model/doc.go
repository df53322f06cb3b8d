// Package model defines the data types shared by the closure engine and its
// record stores.
//
// A Link is one closure record: the fact that Descendant is reachable from
// Ancestor. Direct marks an explicitly authored arc; Count is the number of
// distinct paths that currently justify the record. Links are the unit of
// storage and the unit of mutation.
//
// # Invariants
//
// After every committed transaction:
//   - At most one Link exists per ordered (Ancestor, Descendant) pair
//   - Ancestor never equals Descendant
//   - A Link for (a, d) excludes a Link for (d, a)
//   - Count >= 1 for every stored Link
//   - Ancestor and Descendant never change once a Link is stored
package model
