package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"curator/internal/scanner"
	"curator/internal/testsupport"
)

func TestScanAddsAndPrunes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	root := cfg.PeopleRoot()
	ctx := context.Background()

	testsupport.WritePersonDescriptor(t, root, "Jane Doe", testsupport.PersonXML("Jane Doe"))
	testsupport.MkdirAll(t, filepath.Join(root, "John Roe"))
	testsupport.MkdirAll(t, filepath.Join(root, ".trash"))
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s := scanner.New(cfg, store, nil)
	result, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Discovered != 2 || result.Added != 2 || result.Removed != 0 {
		t.Fatalf("unexpected first scan result: %+v", result)
	}

	if err := os.RemoveAll(filepath.Join(root, "John Roe")); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	result, err = s.Scan(ctx)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if result.Discovered != 1 || result.Added != 0 || result.Removed != 1 {
		t.Fatalf("unexpected second scan result: %+v", result)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].DirName != "Jane Doe" {
		t.Fatalf("unexpected catalog contents: %+v", records)
	}
}

func TestScanMissingRootKeepsCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	testsupport.MkdirAll(t, filepath.Join(cfg.PeopleRoot(), "Jane Doe"))
	s := scanner.New(cfg, store, nil)
	if _, err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if err := os.RemoveAll(cfg.PeopleRoot()); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	result, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan with missing root: %v", err)
	}
	if result != (scanner.Result{}) {
		t.Fatalf("expected empty result, got %+v", result)
	}
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected catalog untouched, got %d records", len(records))
	}
}
