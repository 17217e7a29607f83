// Package watch turns descriptor edits into immediate single-entity
// refreshes.
//
// The Watcher registers each entity's metadata directory with fsnotify and
// debounces bursts of writes (editors and media servers rarely write a
// descriptor in one go) before asking the refresher to re-evaluate the
// entity. Sync keeps the watch set aligned with the catalog after scans.
// Optionally the people root is watched too, so new or removed person
// folders trigger a rescan.
package watch
