// Package scheduler decides which catalog entities are due for a refresh and
// drives the refresh coordinators over them.
//
// A run loads entities from the catalog, compares each entity's refresh
// marker with the time its coordinator reports for the descriptor, and
// refreshes the stale ones (or all of them when forced) with bounded
// fan-out. Parse concurrency stays bounded by the shared gate regardless of
// how many workers a run uses. Refreshed content is persisted and every
// attempt is recorded against the run id.
//
// The scheduler is the single writer per entity: an entity already being
// refreshed by another run or by the watcher is reported as busy rather than
// refreshed twice.
package scheduler
