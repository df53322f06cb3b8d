// Package harness runs YAML graph scenarios against the closure engine.
//
// # Scenario Format
//
//	name: diamond
//	description: "Two routes from a to d"
//	polymorphic: false
//	setup:
//	  - a>b
//	  - b>c
//	steps:
//	  - op: connect
//	    from: a
//	    to: c
//	  - op: disconnect
//	    from: a
//	    to: c
//	    expect:
//	      outcome: fatal
//	      code: NOT_DESTROYABLE
//	assertions:
//	  - type: link
//	    from: a
//	    to: c
//	    direct: true
//	    count: 2
//
// Setup arcs must connect cleanly. Each step runs one engine mutation; a
// step without expect must succeed.
//
// # Step Operations
//
//   - connect: Engine.Connect
//   - disconnect: Engine.Disconnect
//   - set_direct: Engine.SetDirect with the step's direct flag
//
// # Assertion Types
//
//   - link: the record exists, optionally with the given direct flag and count
//   - no_link: no record exists for the pair
//   - connected / not_connected: reachability
//   - path: LongestPathBetween or ShortestPathBetween equals nodes
//   - exact: Verify reports no discrepancies
//   - size: the closure holds exactly count records
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store with sequential pass ids,
// so the final closure can be compared against a golden snapshot.
package harness
