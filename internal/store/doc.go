// Package store defines the record store used by the closure engine and
// provides its SQLite implementation.
//
// The engine reads and writes closure links only through Store and Tx, so
// any backend that offers atomic multi-record transactions can hold a
// closure. Sibling packages provide Badger (badgerstore) and in-process
// (memstore) backends.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - _txlock=immediate: Writers take the database lock at BEGIN, so two
//     rewiring passes never interleave their reads and writes
//
// Table and column names come from model.Columns and are rendered into the
// schema and every statement once, when the store is opened.
//
// # Ordering
//
// All listings use ORDER BY ancestor type, ancestor id, descendant type,
// descendant id COLLATE BINARY so results are identical across backends.
package store
