package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/symdiff/pkg/deps"
	"github.com/ritzau/symdiff/pkg/dump"
	"github.com/ritzau/symdiff/pkg/logging"
	"github.com/ritzau/symdiff/pkg/pubsub"
	"github.com/ritzau/symdiff/pkg/snapshot"
)

var log = logging.New("analysis")

// Result is the outcome of updating or removing one module
type Result struct {
	ID       uuid.UUID
	Module   string
	Initial  bool // first sight of the module, nothing to compare against
	Removed  bool
	Triggers []string
	Affected []string   // dependents of the triggers, transitively
	Groups   [][]string // Affected split into mutually dependent groups
	Duration time.Duration
}

// Changed reports whether the update fired any trigger
func (r *Result) Changed() bool {
	return len(r.Triggers) > 0
}

// Event converts the result to its published form. Lists are never nil.
func (r *Result) Event() pubsub.TriggerEvent {
	event := pubsub.TriggerEvent{
		ID:         r.ID.String(),
		Module:     r.Module,
		Initial:    r.Initial,
		Removed:    r.Removed,
		Triggers:   r.Triggers,
		Affected:   r.Affected,
		Groups:     r.Groups,
		DurationMs: r.Duration.Milliseconds(),
	}
	if event.Triggers == nil {
		event.Triggers = []string{}
	}
	if event.Affected == nil {
		event.Affected = []string{}
	}
	if event.Groups == nil {
		event.Groups = [][]string{}
	}
	return event
}

type moduleState struct {
	snapshot    snapshot.Table
	fingerprint string
}

// Session keeps the last snapshot of every module and turns new dumps into
// trigger sets. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	modules map[string]*moduleState
	graph   *deps.Graph
}

// NewSession creates an empty session backed by graph
func NewSession(graph *deps.Graph) *Session {
	if graph == nil {
		graph = deps.NewGraph()
	}
	return &Session{
		modules: make(map[string]*moduleState),
		graph:   graph,
	}
}

// Graph returns the dependency graph updated by the session
func (s *Session) Graph() *deps.Graph {
	return s.graph
}

// Update snapshots a freshly decoded module and compares it to the previous
// snapshot. The session takes ownership of mod.
func (s *Session) Update(ctx context.Context, mod *dump.Module) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{ID: uuid.New(), Module: mod.Name}

	snap := snapshot.SymbolTable(mod.Name, mod.Names)
	state := &moduleState{snapshot: snap, fingerprint: snapshot.Fingerprint(snap)}

	s.mu.Lock()
	prev, known := s.modules[mod.Name]
	s.modules[mod.Name] = state
	s.mu.Unlock()

	s.graph.ReplaceModule(mod.Name, mod.Dependencies)

	switch {
	case !known:
		result.Initial = true
	case prev.fingerprint == state.fingerprint:
		log.DebugContext(ctx, "module unchanged", "module", mod.Name)
	default:
		result.Triggers = snapshot.Diff(mod.Name, prev.snapshot, snap).Sorted()
	}

	s.expand(result)
	result.Duration = time.Since(start)

	log.InfoContext(ctx, "module updated",
		"module", mod.Name,
		"initial", result.Initial,
		"triggers", len(result.Triggers),
		"affected", len(result.Affected),
		"durationMs", result.Duration.Milliseconds(),
	)
	if len(result.Triggers) > 0 {
		log.DebugContext(ctx, "triggers fired", "module", mod.Name, "names", result.Triggers)
	}
	return result, nil
}

// Remove forgets a module. Every name it defined fires.
func (s *Session) Remove(ctx context.Context, module string) (*Result, bool) {
	start := time.Now()

	s.mu.Lock()
	prev, known := s.modules[module]
	delete(s.modules, module)
	s.mu.Unlock()

	if !known {
		return nil, false
	}

	result := &Result{
		ID:       uuid.New(),
		Module:   module,
		Removed:  true,
		Triggers: snapshot.Diff(module, prev.snapshot, snapshot.Table{}).Sorted(),
	}
	s.expand(result)
	s.graph.ReplaceModule(module, nil)
	result.Duration = time.Since(start)

	log.InfoContext(ctx, "module removed", "module", module, "triggers", len(result.Triggers))
	return result, true
}

func (s *Session) expand(result *Result) {
	if len(result.Triggers) == 0 {
		return
	}
	result.Affected = s.graph.Dependents(result.Triggers)
	result.Groups = s.graph.RecheckGroups(result.Affected)
}

// Snapshot returns the last snapshot of a module
func (s *Session) Snapshot(module string) (snapshot.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.modules[module]
	if !ok {
		return nil, false
	}
	return state.snapshot, true
}

// Fingerprint returns the fingerprint of the last snapshot of a module
func (s *Session) Fingerprint(module string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.modules[module]
	if !ok {
		return "", false
	}
	return state.fingerprint, true
}

// Modules returns the known module names, sorted
func (s *Session) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
