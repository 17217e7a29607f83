// Package preflight provides readiness checks for the filesystem paths and
// kernel limits Curator depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll on startup and logs every failing check.
//   - The CLI "curator check" command renders the same results as a table.
//
// The library is only read, so it is checked for read access; the state and
// log directories must be writable.
package preflight
