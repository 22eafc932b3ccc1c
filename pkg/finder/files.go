package finder

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DumpSuffix is the file name suffix of symbol table dumps
const DumpSuffix = ".symtab.json"

// IsDumpFile reports whether path names a symbol table dump
func IsDumpFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, DumpSuffix) && len(base) > len(DumpSuffix) && !strings.HasPrefix(base, ".")
}

// FindDumpFiles walks the dump directory and returns all symbol table dumps
// in lexical order, skipping hidden directories such as .git.
func FindDumpFiles(root string) ([]string, error) {
	var dumpFiles []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if IsDumpFile(path) {
			dumpFiles = append(dumpFiles, path)
		}

		return nil
	})

	sort.Strings(dumpFiles)
	return dumpFiles, err
}
