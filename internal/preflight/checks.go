package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"curator/internal/catalog"
)

const inotifyWatchesPath = "/proc/sys/fs/inotify/max_user_watches"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckCatalog verifies the catalog database opens with the expected schema.
// A missing catalog passes; it is created on first use.
func CheckCatalog(ctx context.Context, path string) Result {
	const name = "Catalog"

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	store, err := catalog.OpenPath(path)
	if err != nil {
		if errors.Is(err, catalog.ErrSchemaMismatch) {
			return Result{Name: name, Detail: "schema out of date (delete the catalog and rescan)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entities)", path, len(records))}
}

// CheckInotifyLimit compares the per-user inotify watch limit read from
// limitPath with the number of entity directories under root.
func CheckInotifyLimit(root, limitPath string) Result {
	const name = "Watch limit"

	data, err := os.ReadFile(limitPath)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: "limit unknown (not Linux?)"}
	}
	limit, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("limit unreadable (%q)", strings.TrimSpace(string(data)))}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot count directories (%v)", err)}
	}
	// One watch per entity directory plus the root itself.
	needed := 1
	for _, entry := range entries {
		if entry.IsDir() {
			needed++
		}
	}
	if needed > limit {
		return Result{Name: name, Detail: fmt.Sprintf("%d watches needed, limit %d (raise fs.inotify.max_user_watches)", needed, limit)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d of %d watches", needed, limit)}
}
