package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "widget.h", "struct Widget {};")
	writeFile(t, dir, "gfx/color.HPP", "enum Color {};")
	// Sources are not units by default
	writeFile(t, dir, "widget.cpp", "int x;")
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.h", "secret")

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), paths)
	}

	// Sorted and slash-separated
	if entries[0].Path != "gfx/color.HPP" {
		t.Errorf("entry 0: got %q", entries[0].Path)
	}
	if entries[1].Path != "widget.h" {
		t.Errorf("entry 1: got %q", entries[1].Path)
	}

	for _, e := range entries {
		if e.Language != "cpp" {
			t.Errorf("entry %q: language = %q, want cpp", e.Path, e.Language)
		}
	}
	if entries[1].Size != int64(len("struct Widget {};")) {
		t.Errorf("entry 1: size = %d", entries[1].Size)
	}
}

func TestDiscoverExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "a.h", "")
	writeFile(t, dir, "a.cpp", "")
	writeFile(t, dir, "b.cc", "")
	writeFile(t, dir, "c.py", "")

	entries, err := Files(dir, Options{Extensions: []string{".cpp", ".cc", ".py"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "a.cpp" || entries[1].Path != "b.cc" {
		t.Errorf("got %q, %q", entries[0].Path, entries[1].Path)
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.h", "")
	writeFile(t, dir, "build/gen.h", "")
	writeFile(t, dir, "CMakeFiles/probe.h", "")
	writeFile(t, dir, ".cache/secret.h", "")

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "main.h" {
		t.Errorf("expected main.h, got %q", entries[0].Path)
	}
}

func TestDiscoverExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "vendor/\n")
	writeFile(t, dir, "api.h", "")
	writeFile(t, dir, "vendor/lib.h", "")
	writeFile(t, dir, "tests/fixture.h", "")
	writeFile(t, dir, "detail/impl_private.h", "")

	entries, err := Files(dir, Options{Exclude: []string{"tests/", "*_private.h"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(entries), entries)
	}
	if entries[0].Path != "api.h" {
		t.Errorf("expected api.h, got %q", entries[0].Path)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.h", "")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.h"), filepath.Join(dir, "link.h"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "real.h" {
		t.Errorf("expected real.h, got %q", entries[0].Path)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
