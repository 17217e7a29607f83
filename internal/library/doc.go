// Package library models the catalog entities whose metadata Curator keeps
// in sync with on-disk descriptor files.
//
// Entities expose their metadata anchor directory and the instant they were
// last refreshed. Content and the refresh marker are always committed
// together through ApplyRefresh so readers never observe one without the
// other.
package library
