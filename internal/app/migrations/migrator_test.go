package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	tests := map[string]string{
		"001_init.sql":                 "001",
		"migrations/002_add_index.sql": "002",
		"003.sql":                      "003.sql",
	}
	for in, want := range tests {
		if got := migrationVersion(in); got != want {
			t.Errorf("migrationVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationFilesAreSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	want := []string{filepath.Join(dir, "001_a.sql"), filepath.Join(dir, "002_b.sql")}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestMigrationFilesMissingDir(t *testing.T) {
	if _, err := MigrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestShippedMigrationsAreVersioned(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "..", "migrations"))
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations found")
	}
	seen := map[string]bool{}
	for _, f := range files {
		v := migrationVersion(f)
		if seen[v] {
			t.Errorf("duplicate migration version %s", v)
		}
		seen[v] = true
	}
}
