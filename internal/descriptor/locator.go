package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"curator/internal/library"
)

// Never is the comparison instant used when no descriptor exists.
var Never = time.Time{}

// FileNames maps each entity kind to its descriptor file name.
var FileNames = map[library.Kind]string{
	library.KindPerson: "person.xml",
}

// File is a snapshot of a descriptor taken at lookup time.
type File struct {
	Path    string
	ModTime time.Time
}

// Locator resolves the descriptor for an entity. ok is false when the
// entity has no descriptor; err is reserved for lookups that could not
// determine either way.
type Locator interface {
	Locate(entity library.Entity) (file File, ok bool, err error)
}

// FileLocator resolves descriptors by kind-specific file name under the
// entity's metadata location.
type FileLocator struct{}

// NewFileLocator returns the filesystem locator.
func NewFileLocator() FileLocator {
	return FileLocator{}
}

// FileName returns the descriptor file name for kind.
func FileName(kind library.Kind) (string, bool) {
	name, ok := FileNames[kind]
	return name, ok
}

// PathFor returns where the descriptor for entity would live.
func PathFor(entity library.Entity) (string, bool) {
	name, ok := FileName(entity.Kind())
	if !ok || entity.MetaLocation() == "" {
		return "", false
	}
	return filepath.Join(entity.MetaLocation(), name), true
}

// Locate implements Locator.
func (FileLocator) Locate(entity library.Entity) (File, bool, error) {
	path, ok := PathFor(entity)
	if !ok {
		return File{}, false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("stat descriptor %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, false, nil
	}
	return File{Path: path, ModTime: info.ModTime().UTC()}, true, nil
}

// CompareTime returns the instant to compare against an entity's last
// refresh: the descriptor's write time, or Never when it is absent or
// cannot be read.
func CompareTime(locator Locator, entity library.Entity) time.Time {
	file, ok, err := locator.Locate(entity)
	if err != nil || !ok {
		return Never
	}
	return file.ModTime
}
