// Package engine maintains the transitive closure of a directed acyclic
// graph incrementally.
//
// Every reachable ordered pair (u, v) has one closure record whose Count is
// the number of distinct paths from u to v in the graph of direct arcs.
// Flipping one record's Direct flag changes exactly the paths that use that
// arc, so a single rewiring pass updates every affected record in place:
//
//	above x e    -> bridging legs (above, sink)
//	e x below    -> bridging legs (source, below)
//	above x below via the (above, sink) legs -> long legs
//
// Each product is the change in path count between the two outer
// endpoints. A record whose count reaches zero is deleted.
//
// Mutation pipeline:
//
// Every client mutation runs validate -> rewire -> commit inside one
// store transaction while holding the engine's write lock. Records written
// by the rewiring pass go straight to the transaction and never reach the
// validator or trigger another pass.
//
// Errors:
//
// Validation failures are returned as *validate.RejectedError and nothing is
// committed. InvariantError reports a broken internal precondition; it
// aborts the transaction and is returned by both soft and strict variants.
package engine
