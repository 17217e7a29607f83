// Package scanner discovers library entities on disk and keeps the catalog
// in step with the directories that exist.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/logging"
)

// Result summarizes one scan.
type Result struct {
	Discovered int `json:"discovered"`
	Added      int `json:"added"`
	Removed    int `json:"removed"`
}

// Scanner walks the people root and syncs the catalog.
type Scanner struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs a scanner.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{cfg: cfg, store: store, logger: logging.NewComponentLogger(logger, "scanner")}
}

// Scan upserts every person directory under the people root and prunes
// records whose directory is gone. A missing people root discovers nothing
// and prunes nothing, so an unmounted share never wipes the catalog.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	root := s.cfg.PeopleRoot()
	dirs, err := listPersonDirs(root)
	if errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(s.logger, "people directory missing; skipping prune", "people_root_missing",
			logging.String("path", root),
			logging.String(logging.FieldErrorHint, "check paths.library_dir and paths.people_dir"),
			logging.String(logging.FieldImpact, "no entities discovered this scan"),
		)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	var result Result
	keep := make([]string, 0, len(dirs))
	for _, name := range dirs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		location := filepath.Join(root, name)
		_, created, err := s.store.Upsert(ctx, library.KindPerson, name, location)
		if err != nil {
			return result, fmt.Errorf("register %s: %w", location, err)
		}
		keep = append(keep, location)
		result.Discovered++
		if created {
			result.Added++
			s.logger.Debug("entity discovered", logging.String("path", location))
		}
	}

	removed, err := s.store.Prune(ctx, library.KindPerson, keep)
	if err != nil {
		return result, err
	}
	result.Removed = removed

	s.logger.Info("scan complete",
		logging.String("root", root),
		logging.Int("discovered", result.Discovered),
		logging.Int("added", result.Added),
		logging.Int("removed", result.Removed),
	)
	return result, nil
}

func listPersonDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read people root: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.IsDir() {
			// Symlinked person folders are common on shared libraries.
			if entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			info, err := os.Stat(filepath.Join(root, name))
			if err != nil || !info.IsDir() {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
