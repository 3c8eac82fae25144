package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIsInfrastructurePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".whowrote/pending.db", true},
		{".whowrote", true},
		{"src/main.go", false},
		{".whowrotefile", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := IsInfrastructurePath(tt.path)
			if got != tt.want {
				t.Errorf("IsInfrastructurePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFindDataRoot_NearestAncestor(t *testing.T) {
	t.Parallel()

	outer := t.TempDir()
	inner := filepath.Join(outer, "vendor", "inner")
	for _, dir := range []string{
		filepath.Join(outer, DataDir),
		filepath.Join(inner, DataDir),
		filepath.Join(inner, "pkg"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindDataRoot(filepath.Join(inner, "pkg", "file.go"))
	if err != nil {
		t.Fatalf("FindDataRoot() error = %v", err)
	}
	if got != inner {
		t.Errorf("FindDataRoot() = %q, want %q", got, inner)
	}

	got, err = FindDataRoot(filepath.Join(outer, "main.go"))
	if err != nil {
		t.Fatalf("FindDataRoot() error = %v", err)
	}
	if got != outer {
		t.Errorf("FindDataRoot() = %q, want %q", got, outer)
	}
}

func TestFindDataRoot_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := FindDataRoot(filepath.Join(dir, "a.go"))
	if !errors.Is(err, ErrNoDataDir) {
		t.Errorf("FindDataRoot() error = %v, want ErrNoDataDir", err)
	}
}

func TestFindDataRoot_StopsAtGitRoot(t *testing.T) {
	t.Parallel()

	outer := t.TempDir()
	inner := filepath.Join(outer, "third_party", "lib")
	for _, dir := range []string{
		filepath.Join(outer, DataDir),
		filepath.Join(inner, ".git"),
		filepath.Join(inner, "src"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	_, err := FindDataRoot(filepath.Join(inner, "src", "lib.go"))
	if !errors.Is(err, ErrNoDataDir) {
		t.Errorf("FindDataRoot() error = %v, want ErrNoDataDir", err)
	}

	// A tracked repository root is found before its own .git stops the walk.
	if err := os.MkdirAll(filepath.Join(inner, DataDir), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := FindDataRoot(filepath.Join(inner, "src", "lib.go"))
	if err != nil {
		t.Fatalf("FindDataRoot() error = %v", err)
	}
	if got != inner {
		t.Errorf("FindDataRoot() = %q, want %q", got, inner)
	}
}

func TestToRelativePath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	tests := []struct {
		name string
		path string
		want string
	}{
		{"inside", filepath.Join(root, "src", "a.go"), "src/a.go"},
		{"outside", filepath.Join(string(filepath.Separator), "other", "a.go"), ""},
		{"already relative", "src/a.go", "src/a.go"},
		{"sibling with shared prefix", filepath.Join(string(filepath.Separator), "repo2", "a.go"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRelativePath(tt.path, root); got != tt.want {
				t.Errorf("ToRelativePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
