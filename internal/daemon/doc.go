// Package daemon coordinates the long-running Curator process.
//
// It wires configuration, the catalog, the scanner, the refresh scheduler,
// and the descriptor watcher into a single lifecycle with flock-based locking
// to prevent multiple instances. On start the daemon scans the library and
// runs a refresh, then repeats both on the configured interval while the
// watcher handles individual descriptor edits in between.
//
// Keep orchestration logic here: refresh decisions live in the scheduler and
// parsing in the refresh coordinators.
package daemon
