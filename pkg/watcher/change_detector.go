package watcher

import (
	"errors"
	"io/fs"
	"os"
	"sort"

	"github.com/ritzau/symdiff/pkg/dump"
)

// ChangeAnalysis describes which dumps must be reloaded and which modules
// are gone
type ChangeAnalysis struct {
	Reload []string // dump paths
	Remove []string // module names
}

// Empty reports whether there is nothing to do
func (a *ChangeAnalysis) Empty() bool {
	return len(a.Reload) == 0 && len(a.Remove) == 0
}

// Merge adds the changes of other
func (a *ChangeAnalysis) Merge(other *ChangeAnalysis) {
	a.Reload = uniqueSorted(append(a.Reload, other.Reload...))
	a.Remove = uniqueSorted(append(a.Remove, other.Remove...))
}

// AnalyzeChanges determines what a batch of changes means for the session.
// Editors and binders often replace a dump by writing a new file and
// renaming it into place, so the event type is only a hint: a path that
// exists now is reloaded and a path that is gone is removed.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	return analyzeChanges(event, exists)
}

func analyzeChanges(event ChangeEvent, present func(string) bool) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	for _, path := range event.Paths {
		module, ok := dump.ModuleName(path)
		if !ok {
			continue
		}
		if present(path) {
			analysis.Reload = append(analysis.Reload, path)
		} else {
			analysis.Remove = append(analysis.Remove, module)
		}
	}

	analysis.Reload = uniqueSorted(analysis.Reload)
	analysis.Remove = uniqueSorted(analysis.Remove)
	return analysis
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	sort.Strings(values)
	result := values[:1]
	for _, v := range values[1:] {
		if v != result[len(result)-1] {
			result = append(result, v)
		}
	}
	return result
}
