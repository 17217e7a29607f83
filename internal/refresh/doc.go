// Package refresh decides when an entity's descriptor is newer than its
// recorded refresh and re-parses it under the process-wide parse gate.
//
// A Coordinator handles one entity kind. NeedsRefresh is cheap and
// side-effect free so schedulers can batch staleness checks; Refresh does
// the gated parse and commits the result together with the refresh marker.
// Every permit taken from the gate is released before Refresh returns,
// whether the parse succeeds, fails, or is cancelled.
//
// Registry dispatches entities to the coordinator advertising their kind.
package refresh
