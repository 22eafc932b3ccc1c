package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/symdiff/pkg/analysis"
	"github.com/ritzau/symdiff/pkg/snapshot"
)

// DiffReport is the JSON shape of a diff between two dumps of one module
type DiffReport struct {
	Module   string   `json:"module"`
	Triggers []string `json:"triggers"`
}

// NewDiffReport builds a report, never with a nil trigger list
func NewDiffReport(module string, triggers []string) *DiffReport {
	if triggers == nil {
		triggers = []string{}
	}
	return &DiffReport{Module: module, Triggers: triggers}
}

// SnapshotReport is the JSON shape of one module snapshot
type SnapshotReport struct {
	Module      string         `json:"module"`
	Fingerprint string         `json:"fingerprint"`
	Snapshot    snapshot.Table `json:"snapshot"`
}

// NewSnapshotReport builds a report for a module snapshot
func NewSnapshotReport(module string, snap snapshot.Table) *SnapshotReport {
	return &SnapshotReport{
		Module:      module,
		Fingerprint: snapshot.Fingerprint(snap),
		Snapshot:    snap,
	}
}

// ConfigureColor applies a color mode: "always", "never" or "auto"
func ConfigureColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
	// auto: fatih/color already checks the terminal
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// PrintDiffReport prints the triggers of a diff with colors
func PrintDiffReport(w io.Writer, report *DiffReport) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	header := fmt.Sprintf("symdiff - %s", report.Module)
	bold.Fprintln(w, header)
	bold.Fprintln(w, strings.Repeat("=", len(header)))

	if len(report.Triggers) == 0 {
		green.Fprintln(w, "✓ No triggers fired")
		return
	}

	yellow.Fprintf(w, "Triggers: %d\n", len(report.Triggers))
	for _, name := range report.Triggers {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

// PrintResult prints one watch update
func PrintResult(w io.Writer, result *analysis.Result) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	if result.Removed {
		red.Fprintf(w, "%s removed", result.Module)
	} else {
		bold.Fprintf(w, "%s changed", result.Module)
	}
	fmt.Fprintf(w, " (%d trigger(s), %d affected, %dms)\n",
		len(result.Triggers), len(result.Affected), result.Duration.Milliseconds())

	for _, name := range result.Triggers {
		fmt.Fprintf(w, "  %s\n", name)
	}

	if len(result.Groups) > 0 {
		cyan.Fprintln(w, "  Recheck:")
		for _, group := range result.Groups {
			fmt.Fprintf(w, "    %s\n", strings.Join(group, ", "))
		}
	}
}

// PrintSnapshot prints one line per name, sorted, in repr form
func PrintSnapshot(w io.Writer, report *SnapshotReport) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, report.Module)
	cyan.Fprintf(w, "fingerprint %s\n", report.Fingerprint)

	names := make([]string, 0, len(report.Snapshot))
	for name := range report.Snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, snapshot.Format(report.Snapshot[name]))
	}
}
