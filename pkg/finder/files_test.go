package finder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDumpFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	write("pkg.b.symtab.json")
	write("pkg.a.symtab.json")
	write("nested/pkg.c.symtab.json")
	write("notes.json")
	write(".git/pkg.d.symtab.json")
	write(".pkg.e.symtab.json")

	files, err := FindDumpFiles(root)
	if err != nil {
		t.Fatalf("FindDumpFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(root, "nested", "pkg.c.symtab.json"),
		filepath.Join(root, "pkg.a.symtab.json"),
		filepath.Join(root, "pkg.b.symtab.json"),
	}
	if len(files) != len(want) {
		t.Fatalf("FindDumpFiles() found %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestFindDumpFilesMissingDir(t *testing.T) {
	if _, err := FindDumpFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("FindDumpFiles() on a missing directory should fail")
	}
}

func TestIsDumpFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"pkg.mod.symtab.json", true},
		{"/a/b/m.symtab.json", true},
		{".symtab.json", false},
		{".m.symtab.json", false},
		{"m.json", false},
		{"m.symtab.json.swp", false},
	}
	for _, tt := range tests {
		if got := IsDumpFile(tt.path); got != tt.want {
			t.Errorf("IsDumpFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
