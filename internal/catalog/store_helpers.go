package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const entityColumns = "id, kind, dir_name, meta_location, name, metadata_json, last_refreshed, created_at, updated_at"

const attemptColumns = "id, entity_id, run_id, outcome, forced, error_message, descriptor_mtime, started_at, finished_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var (
		rec           Record
		kind          string
		metadataJSON  sql.NullString
		lastRefreshed sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := scanner.Scan(
		&rec.ID,
		&kind,
		&rec.DirName,
		&rec.MetaLocation,
		&rec.Name,
		&metadataJSON,
		&lastRefreshed,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = kindFromString(kind)
	if metadataJSON.Valid {
		rec.MetadataJSON = metadataJSON.String
	}
	if lastRefreshed.Valid {
		rec.LastRefreshed = parseTimeString(lastRefreshed.String)
	}
	rec.CreatedAt = parseTimeString(createdAt)
	rec.UpdatedAt = parseTimeString(updatedAt)
	return &rec, nil
}

func scanAttempt(scanner rowScanner) (*Attempt, error) {
	var (
		att          Attempt
		forced       int
		errorMessage sql.NullString
		mtime        sql.NullString
		startedAt    string
		finishedAt   string
	)
	if err := scanner.Scan(
		&att.ID,
		&att.EntityID,
		&att.RunID,
		&att.Outcome,
		&forced,
		&errorMessage,
		&mtime,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	att.Forced = forced != 0
	if errorMessage.Valid {
		att.Error = errorMessage.String
	}
	if mtime.Valid {
		att.DescriptorModTime = parseTimeString(mtime.String)
	}
	att.StartedAt = parseTimeString(startedAt)
	att.FinishedAt = parseTimeString(finishedAt)
	return &att, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func wrapScan(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
