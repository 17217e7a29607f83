package catalog

import (
	"context"
	"fmt"
)

// defaultHistoryLimit bounds History when the caller passes no limit.
const defaultHistoryLimit = 20

// RecordAttempt appends a refresh attempt and returns its row id.
func (s *Store) RecordAttempt(ctx context.Context, att Attempt) (int64, error) {
	if att.EntityID == "" {
		return 0, fmt.Errorf("record attempt: entity id is required")
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO refresh_attempts (entity_id, run_id, outcome, forced, error_message, descriptor_mtime, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		att.EntityID,
		att.RunID,
		att.Outcome,
		boolToInt(att.Forced),
		nullableString(att.Error),
		nullableTime(att.DescriptorModTime),
		formatTime(att.StartedAt),
		formatTime(att.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record attempt for %s: %w", att.EntityID, err)
	}
	return res.LastInsertId()
}

// History returns the most recent attempts for an entity, newest first.
func (s *Store) History(ctx context.Context, entityID string, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+attemptColumns+" FROM refresh_attempts WHERE entity_id = ? ORDER BY id DESC LIMIT ?",
		entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		att, err := scanAttempt(rows)
		if err != nil {
			return nil, wrapScan("scan attempt", err)
		}
		attempts = append(attempts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return attempts, nil
}

// LatestAttempts returns the newest attempt per entity keyed by entity id.
func (s *Store) LatestAttempts(ctx context.Context) (map[string]*Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM refresh_attempts
		 WHERE id IN (SELECT MAX(id) FROM refresh_attempts GROUP BY entity_id)`,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest attempts: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*Attempt)
	for rows.Next() {
		att, err := scanAttempt(rows)
		if err != nil {
			return nil, wrapScan("scan attempt", err)
		}
		latest[att.EntityID] = att
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest attempts: %w", err)
	}
	return latest, nil
}

// TrimHistory keeps the newest keep attempts per entity and deletes the rest.
func (s *Store) TrimHistory(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM refresh_attempts WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY entity_id ORDER BY id DESC) AS rn
				FROM refresh_attempts
			) WHERE rn > ?
		)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	return res.RowsAffected()
}
