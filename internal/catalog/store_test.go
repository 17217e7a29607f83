package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"curator/internal/catalog"
	"curator/internal/library"
	"curator/internal/testsupport"
)

func TestUpsertCreatesOnceAndKeepsID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	location := filepath.Join(cfg.PeopleRoot(), "Jane Doe")

	first, created, err := store.Upsert(ctx, library.KindPerson, "Jane Doe", location)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create the record")
	}
	if first.Name != "Jane Doe" || !first.NeverRefreshed() {
		t.Fatalf("unexpected new record: %+v", first)
	}

	second, created, err := store.Upsert(ctx, library.KindPerson, "Jane Doe", location)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Fatal("expected second upsert to reuse the record")
	}
	if second.ID != first.ID {
		t.Fatalf("id changed: %s -> %s", first.ID, second.ID)
	}
}

func TestSaveRefreshRoundTripsEntity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	rec, _, err := store.Upsert(ctx, library.KindPerson, "jdoe", filepath.Join(cfg.PeopleRoot(), "jdoe"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	entity, err := rec.Entity()
	if err != nil {
		t.Fatalf("Entity: %v", err)
	}
	birth := time.Date(1970, 5, 4, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	md := library.PersonMetadata{Name: "Jane Doe", Overview: "Actor.", BirthDate: &birth, BirthYear: 1970, Genres: []string{"Drama"}}
	if err := entity.ApplyRefresh(md, at); err != nil {
		t.Fatalf("ApplyRefresh: %v", err)
	}
	if err := store.SaveRefresh(ctx, entity); err != nil {
		t.Fatalf("SaveRefresh: %v", err)
	}

	loaded, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Name != "Jane Doe" {
		t.Fatalf("expected parsed name, got %q", loaded.Name)
	}
	if !loaded.LastRefreshed.Equal(at) {
		t.Fatalf("last refreshed: got %s want %s", loaded.LastRefreshed, at)
	}

	restored, err := loaded.Entity()
	if err != nil {
		t.Fatalf("Entity: %v", err)
	}
	person := restored.(*library.Person)
	got := person.Metadata()
	if got.Overview != "Actor." || got.BirthDate == nil || !got.BirthDate.Equal(birth) {
		t.Fatalf("metadata not restored: %+v", got)
	}
	if person.DirName() != "jdoe" {
		t.Fatalf("dir name lost: %q", person.DirName())
	}
}

func TestSaveRefreshUnknownEntity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ghost := library.NewPerson("00000000-0000-0000-0000-000000000000", "ghost", "/nowhere")
	err := store.SaveRefresh(context.Background(), ghost)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveByNameAndID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	rec, _, err := store.Upsert(ctx, library.KindPerson, "Jane Doe", "/lib/People/Jane Doe")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, _, err := store.Upsert(ctx, library.KindPerson, "John Roe", "/lib/People/John Roe"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	byName, err := store.Resolve(ctx, "jane doe")
	if err != nil {
		t.Fatalf("Resolve by name: %v", err)
	}
	if byName.ID != rec.ID {
		t.Fatalf("resolved wrong record: %+v", byName)
	}
	byID, err := store.Resolve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Resolve by id: %v", err)
	}
	if byID.MetaLocation != "/lib/People/Jane Doe" {
		t.Fatalf("unexpected location %q", byID.MetaLocation)
	}
	if _, err := store.Resolve(ctx, "Nobody"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = store.Resolve(ctx, "Jnae Doe")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for typo, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "Jane Doe"`) {
		t.Fatalf("expected suggestion in error, got %v", err)
	}
}

func TestPruneRemovesMissingAndCascadesHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	keep, _, _ := store.Upsert(ctx, library.KindPerson, "Keep", "/lib/People/Keep")
	gone, _, _ := store.Upsert(ctx, library.KindPerson, "Gone", "/lib/People/Gone")
	now := time.Now()
	if _, err := store.RecordAttempt(ctx, catalog.Attempt{EntityID: gone.ID, RunID: "r1", Outcome: "refreshed", StartedAt: now, FinishedAt: now}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	removed, err := store.Prune(ctx, library.KindPerson, []string{keep.MetaLocation})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].ID != keep.ID {
		t.Fatalf("unexpected records after prune: %+v", records)
	}
	history, err := store.History(ctx, gone.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected history to cascade, got %d rows", len(history))
	}
}

func TestHistoryNewestFirstAndLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	rec, _, _ := store.Upsert(ctx, library.KindPerson, "Jane", "/lib/People/Jane")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	outcomes := []string{"skipped", "failed", "refreshed"}
	for i, outcome := range outcomes {
		att := catalog.Attempt{
			EntityID:   rec.ID,
			RunID:      "run",
			Outcome:    outcome,
			Forced:     i == 2,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if outcome == "failed" {
			att.Error = "parse failure: boom"
		}
		if _, err := store.RecordAttempt(ctx, att); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	history, err := store.History(ctx, rec.ID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(history))
	}
	if history[0].Outcome != "refreshed" || !history[0].Forced {
		t.Fatalf("expected newest first, got %+v", history[0])
	}
	if history[1].Error != "parse failure: boom" {
		t.Fatalf("expected error message, got %q", history[1].Error)
	}
	if history[0].Duration() != time.Second {
		t.Fatalf("unexpected duration %s", history[0].Duration())
	}

	latest, err := store.LatestAttempts(ctx)
	if err != nil {
		t.Fatalf("LatestAttempts: %v", err)
	}
	if latest[rec.ID] == nil || latest[rec.ID].Outcome != "refreshed" {
		t.Fatalf("unexpected latest: %+v", latest[rec.ID])
	}

	trimmed, err := store.TrimHistory(ctx, 1)
	if err != nil {
		t.Fatalf("TrimHistory: %v", err)
	}
	if trimmed != 2 {
		t.Fatalf("expected 2 trimmed rows, got %d", trimmed)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 999"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := catalog.OpenPath(path); !errors.Is(err, catalog.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
