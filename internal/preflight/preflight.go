package preflight

import (
	"context"

	"curator/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryReadable("People directory", cfg.PeopleRoot()),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCatalog(ctx, cfg.CatalogPath()),
	}

	// Watch limits only matter when the watcher is on.
	if cfg.Watch.Enabled {
		results = append(results, CheckInotifyLimit(cfg.PeopleRoot(), inotifyWatchesPath))
	}
	return results
}

// Failed filters results down to failing checks.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
