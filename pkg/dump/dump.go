// Package dump reads the per-module symbol table dumps written by the binder.
//
// A dump is a JSON file named <module>.symtab.json:
//
//	{
//	  "module": "pkg.mod",
//	  "names": [{"name": "x", "kind": "gdef", "public": true, "node": {"node": "Var", ...}}],
//	  "dependencies": {"pkg.mod.f": ["other.g"]}
//	}
//
// Decoding validates the whole tree, so a decoded Module can always be
// snapshotted without tripping an invariant.
package dump

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/symdiff/pkg/finder"
	"github.com/ritzau/symdiff/pkg/logging"
	"github.com/ritzau/symdiff/pkg/nodes"
)

// ErrInvalid is wrapped by every error caused by a malformed dump
var ErrInvalid = errors.New("invalid symbol table dump")

var log = logging.New("dump")

// Module is a decoded module dump
type Module struct {
	Name  string
	Names *nodes.SymbolTable

	// Dependencies maps a trigger name to the names that must be rechecked
	// when it fires
	Dependencies map[string][]string

	// Path is the file the module was loaded from, empty for Decode
	Path string
}

// Decode reads and validates one module dump
func Decode(r io.Reader) (*Module, error) {
	var f File
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return FromFile(&f)
}

// FromFile validates an already parsed dump
func FromFile(f *File) (*Module, error) {
	if f.Module == "" {
		return nil, fmt.Errorf("%w: missing module name", ErrInvalid)
	}

	names, err := converter{}.table(f.Module, f.Names, 0)
	if err != nil {
		return nil, err
	}

	for trigger, dependents := range f.Dependencies {
		if trigger == "" {
			return nil, fmt.Errorf("%w: %s: empty trigger in dependencies", ErrInvalid, f.Module)
		}
		for _, d := range dependents {
			if d == "" {
				return nil, fmt.Errorf("%w: %s: empty dependent of %s", ErrInvalid, f.Module, trigger)
			}
		}
	}

	return &Module{
		Name:         f.Module,
		Names:        names,
		Dependencies: f.Dependencies,
	}, nil
}

// Load reads a dump file. The module declared inside must match the file name.
func Load(path string) (*Module, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer func() { _ = file.Close() }()

	mod, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if name, ok := ModuleName(path); ok && name != mod.Name {
		return nil, fmt.Errorf("%w: %s declares module %s", ErrInvalid, path, mod.Name)
	}

	mod.Path = path
	return mod, nil
}

// LoadDir loads every dump below dir, sorted by module name
func LoadDir(dir string) ([]*Module, error) {
	files, err := finder.FindDumpFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	modules := make([]*Module, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, path := range files {
		mod, err := Load(path)
		if err != nil {
			return nil, err
		}
		if other, dup := seen[mod.Name]; dup {
			return nil, fmt.Errorf("%w: module %s dumped twice (%s, %s)", ErrInvalid, mod.Name, other, path)
		}
		seen[mod.Name] = path
		modules = append(modules, mod)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	log.Debug("loaded dumps", "dir", dir, "modules", len(modules))
	return modules, nil
}

// ModuleName derives the module name from a dump file name
func ModuleName(path string) (string, bool) {
	if !finder.IsDumpFile(path) {
		return "", false
	}
	return strings.TrimSuffix(filepath.Base(path), finder.DumpSuffix), true
}
