package descriptor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/library"
)

func TestLocateFindsPersonDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "person.xml")
	if err := os.WriteFile(path, []byte("<Item/>"), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	mtime := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	person := library.NewPerson("p1", "Jane", dir)
	file, ok, err := NewFileLocator().Locate(person)
	if err != nil || !ok {
		t.Fatalf("Locate: ok=%v err=%v", ok, err)
	}
	if file.Path != path {
		t.Fatalf("unexpected path %q", file.Path)
	}
	if !file.ModTime.Equal(mtime) || file.ModTime.Location() != time.UTC {
		t.Fatalf("unexpected mtime %s", file.ModTime)
	}
	if got := CompareTime(NewFileLocator(), person); !got.Equal(mtime) {
		t.Fatalf("CompareTime = %s, want %s", got, mtime)
	}
}

func TestLocateReportsAbsence(t *testing.T) {
	person := library.NewPerson("p1", "Jane", t.TempDir())
	_, ok, err := NewFileLocator().Locate(person)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ok {
		t.Fatal("expected absent descriptor")
	}
	if got := CompareTime(NewFileLocator(), person); !got.Equal(Never) {
		t.Fatalf("expected Never, got %s", got)
	}
}

func TestLocateIgnoresDirectoryNamedLikeDescriptor(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "person.xml"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, ok, err := NewFileLocator().Locate(library.NewPerson("p1", "Jane", dir))
	if err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}
}

func TestLocateIsNotCached(t *testing.T) {
	dir := t.TempDir()
	person := library.NewPerson("p1", "Jane", dir)
	locator := NewFileLocator()

	if _, ok, _ := locator.Locate(person); ok {
		t.Fatal("expected absent before write")
	}
	if err := os.WriteFile(filepath.Join(dir, "person.xml"), []byte("<Item/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok, _ := locator.Locate(person); !ok {
		t.Fatal("expected descriptor after write")
	}
}
