package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"curator/internal/library"
	"curator/internal/textutil"
)

// Upsert registers an entity discovered at metaLocation. Existing records keep
// their id, content, and refresh marker; only the directory name is updated.
// The boolean result reports whether a new record was created.
func (s *Store) Upsert(ctx context.Context, kind library.Kind, dirName, metaLocation string) (*Record, bool, error) {
	if strings.TrimSpace(metaLocation) == "" {
		return nil, false, errors.New("meta location is required")
	}
	existing, err := s.GetByLocation(ctx, metaLocation)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	now := formatTime(time.Now())

	if existing != nil {
		if existing.DirName == dirName {
			return existing, false, nil
		}
		if _, err := s.execWithRetry(ctx,
			`UPDATE entities SET dir_name = ?, name = CASE WHEN metadata_json IS NULL THEN ? ELSE name END, updated_at = ? WHERE id = ?`,
			dirName, dirName, now, existing.ID,
		); err != nil {
			return nil, false, fmt.Errorf("update entity %s: %w", existing.ID, err)
		}
		rec, err := s.Get(ctx, existing.ID)
		return rec, false, err
	}

	id := uuid.NewString()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO entities (id, kind, dir_name, meta_location, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(kind), dirName, metaLocation, dirName, now, now,
	); err != nil {
		return nil, false, fmt.Errorf("insert entity %s: %w", metaLocation, err)
	}
	rec, err := s.Get(ctx, id)
	return rec, true, err
}

// Get fetches a record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.queryOne(ctx, "id = ?", id)
}

// GetByLocation fetches a record by its metadata directory.
func (s *Store) GetByLocation(ctx context.Context, metaLocation string) (*Record, error) {
	return s.queryOne(ctx, "meta_location = ?", metaLocation)
}

// FindByName returns records whose display or directory name matches name,
// ignoring case. Exact matches sort first.
func (s *Store) FindByName(ctx context.Context, name string) ([]*Record, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}
	return s.queryMany(ctx,
		`WHERE name = ? COLLATE NOCASE OR dir_name = ? COLLATE NOCASE
		 ORDER BY CASE WHEN name = ? THEN 0 ELSE 1 END, name COLLATE NOCASE`,
		trimmed, trimmed, trimmed,
	)
}

// Resolve locates a single record by id or by name.
func (s *Store) Resolve(ctx context.Context, ref string) (*Record, error) {
	if _, err := uuid.Parse(ref); err == nil {
		if rec, err := s.Get(ctx, ref); err == nil {
			return rec, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	matches, err := s.FindByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		if hints, _ := s.SuggestNames(ctx, ref, 3); len(hints) > 0 {
			return nil, fmt.Errorf("%w: %q (did you mean %s?)", ErrNotFound, ref, quoteJoin(hints))
		}
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d entities; use the id instead", ref, len(matches))
	}
}

// SuggestNames returns up to limit catalog names that closely resemble ref.
func (s *Store) SuggestNames(ctx context.Context, ref string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM entities WHERE name <> ''")
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapScan("scan name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	return textutil.Suggest(ref, names, limit, suggestThreshold), nil
}

const suggestThreshold = 0.45

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, " or ")
}

// List returns records of the given kinds ordered by name. No kinds lists everything.
func (s *Store) List(ctx context.Context, kinds ...library.Kind) ([]*Record, error) {
	if len(kinds) == 0 {
		return s.queryMany(ctx, "ORDER BY name COLLATE NOCASE")
	}
	args := make([]any, len(kinds))
	for i, kind := range kinds {
		args[i] = string(kind)
	}
	return s.queryMany(ctx,
		fmt.Sprintf("WHERE kind IN (%s) ORDER BY name COLLATE NOCASE", placeholders(len(kinds))),
		args...,
	)
}

// Load returns the in-memory entities for every record of the given kinds.
func (s *Store) Load(ctx context.Context, kinds ...library.Kind) ([]library.Entity, error) {
	records, err := s.List(ctx, kinds...)
	if err != nil {
		return nil, err
	}
	entities := make([]library.Entity, 0, len(records))
	for _, rec := range records {
		entity, err := rec.Entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// SaveRefresh persists an entity's content and refresh marker in one statement.
func (s *Store) SaveRefresh(ctx context.Context, entity library.Entity) error {
	name, metadataJSON, refreshed, err := snapshot(entity)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE entities SET name = ?, metadata_json = ?, last_refreshed = ?, updated_at = ? WHERE id = ?`,
		name, metadataJSON, nullableTime(refreshed), formatTime(time.Now()), entity.ID(),
	)
	if err != nil {
		return fmt.Errorf("save refresh for %s: %w", entity.ID(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, entity.ID())
	}
	return nil
}

// Prune removes records of kind whose metadata directory is not in keep.
// History rows cascade with their entity.
func (s *Store) Prune(ctx context.Context, kind library.Kind, keep []string) (int, error) {
	records, err := s.List(ctx, kind)
	if err != nil {
		return 0, err
	}
	present := make(map[string]struct{}, len(keep))
	for _, location := range keep {
		present[location] = struct{}{}
	}
	var stale []any
	for _, rec := range records {
		if _, ok := present[rec.MetaLocation]; !ok {
			stale = append(stale, rec.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM entities WHERE id IN (%s)", placeholders(len(stale))),
		stale...,
	)
	if err != nil {
		return 0, fmt.Errorf("prune entities: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return len(stale), nil
	}
	return int(removed), nil
}

func (s *Store) queryOne(ctx context.Context, where string, args ...any) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE "+where, args...)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, args[0])
	}
	if err != nil {
		return nil, wrapScan("scan entity", err)
	}
	return rec, nil
}

func (s *Store) queryMany(ctx context.Context, clause string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+entityColumns+" FROM entities "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrapScan("scan entity", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return records, nil
}
