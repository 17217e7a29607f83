package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// MkdirAll creates dir and fails the test on error.
func MkdirAll(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

// PersonXML renders a minimal person descriptor. Extra elements are inserted
// verbatim inside the root.
func PersonXML(name string, extra ...string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<Item>\n")
	if name != "" {
		fmt.Fprintf(&b, "  <LocalTitle>%s</LocalTitle>\n", name)
	}
	for _, element := range extra {
		b.WriteString("  ")
		b.WriteString(element)
		b.WriteString("\n")
	}
	b.WriteString("</Item>\n")
	return b.String()
}

// WritePersonDescriptor creates root/dirName/person.xml with body and returns
// the metadata directory.
func WritePersonDescriptor(t testing.TB, root, dirName, body string) string {
	t.Helper()
	dir := filepath.Join(root, dirName)
	MkdirAll(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "person.xml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return dir
}

// SetModTime changes a file's modification time.
func SetModTime(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
