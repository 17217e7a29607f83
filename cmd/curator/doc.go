// Package main hosts the Curator CLI entrypoint and command graph.
//
// The Cobra-based command tree scans the library into the catalog, runs
// refreshes in the foreground, reports catalog and daemon status, and
// scaffolds configuration. Commands work directly against the catalog
// database, so they are safe to run while the daemon is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
