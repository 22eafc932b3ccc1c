// Package deps tracks which declarations must be rechecked when a trigger
// fires. Edges point from a trigger name to a dependent name and are
// contributed by module dumps, so a module's edges can be replaced wholesale
// when its dump changes.
package deps

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// manual owns edges added through AddDependency
const manual = ""

type edgeKey struct {
	from, to int64
}

// Graph is a trigger → dependent graph. It is safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	graph  *simple.DirectedGraph
	ids    map[string]int64 // name → graph ID
	names  map[int64]string // graph ID → name
	nextID int64

	// owners counts the modules contributing each edge
	owners  map[edgeKey]map[string]struct{}
	modules map[string][]edgeKey
}

// NewGraph creates an empty dependency graph
func NewGraph() *Graph {
	return &Graph{
		graph:   simple.NewDirectedGraph(),
		ids:     make(map[string]int64),
		names:   make(map[int64]string),
		owners:  make(map[edgeKey]map[string]struct{}),
		modules: make(map[string][]edgeKey),
	}
}

// AddDependency records that dependent must be rechecked when trigger fires.
// Such edges are never dropped by ReplaceModule.
func (g *Graph) AddDependency(trigger, dependent string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if key, ok := g.addEdge(trigger, dependent, manual); ok {
		g.modules[manual] = append(g.modules[manual], key)
	}
}

// ReplaceModule drops every edge previously contributed by module and adds
// the edges in deps, keyed by trigger. A nil map just drops the edges.
func (g *Graph) ReplaceModule(module string, deps map[string][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, key := range g.modules[module] {
		g.release(key, module)
	}
	delete(g.modules, module)

	triggers := make([]string, 0, len(deps))
	for trigger := range deps {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)

	var keys []edgeKey
	for _, trigger := range triggers {
		for _, dependent := range deps[trigger] {
			if key, ok := g.addEdge(trigger, dependent, module); ok {
				keys = append(keys, key)
			}
		}
	}
	if len(keys) > 0 {
		g.modules[module] = keys
	}
}

// addEdge adds the edge for owner and reports whether owner is new to it.
// Self edges carry no information and are skipped.
func (g *Graph) addEdge(trigger, dependent, owner string) (edgeKey, bool) {
	if trigger == dependent {
		return edgeKey{}, false
	}

	from, to := g.node(trigger), g.node(dependent)
	key := edgeKey{from, to}

	if !g.graph.HasEdgeFromTo(from, to) {
		g.graph.SetEdge(g.graph.NewEdge(g.graph.Node(from), g.graph.Node(to)))
	}

	owners, ok := g.owners[key]
	if !ok {
		owners = make(map[string]struct{})
		g.owners[key] = owners
	}
	if _, dup := owners[owner]; dup {
		return key, false
	}
	owners[owner] = struct{}{}
	return key, true
}

func (g *Graph) release(key edgeKey, owner string) {
	owners := g.owners[key]
	delete(owners, owner)
	if len(owners) > 0 {
		return
	}

	delete(g.owners, key)
	g.graph.RemoveEdge(key.from, key.to)
	g.pruneNode(key.from)
	g.pruneNode(key.to)
}

// pruneNode forgets a name once no edge touches it
func (g *Graph) pruneNode(id int64) {
	if g.graph.From(id).Len() > 0 || g.graph.To(id).Len() > 0 {
		return
	}
	g.graph.RemoveNode(id)
	delete(g.ids, g.names[id])
	delete(g.names, id)
}

func (g *Graph) node(name string) int64 {
	if id, ok := g.ids[name]; ok {
		return id
	}

	id := g.nextID
	g.nextID++
	g.ids[name] = id
	g.names[id] = name
	g.graph.AddNode(simple.Node(id))
	return id
}

// Dependents returns every name reachable from the triggers, sorted. A
// trigger is only included when another trigger reaches it.
func (g *Graph) Dependents(triggers []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Walks share one visited set, so a trigger reached from another is
	// recorded through its edge even if its own walk already ran
	reached := make(map[int64]struct{})
	bfs := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			reached[e.To().ID()] = struct{}{}
			return true
		},
	}
	for _, trigger := range triggers {
		if id, ok := g.ids[trigger]; ok {
			bfs.Walk(g.graph, g.graph.Node(id), nil)
		}
	}

	result := make([]string, 0, len(reached))
	for id := range reached {
		result = append(result, g.names[id])
	}
	sort.Strings(result)
	return result
}

// RecheckGroups partitions names into groups of mutually dependent
// declarations that have to be rechecked together. Only edges between the
// given names count. Names within a group are sorted and groups are ordered
// by their first name.
func (g *Graph) RecheckGroups(names []string) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sub := simple.NewDirectedGraph()
	local := make(map[int64]string, len(names))
	seen := make(map[string]struct{}, len(names))
	unknown := g.nextID
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		id, ok := g.ids[name]
		if !ok {
			// Unknown to the graph: a group of its own
			id = unknown
			unknown++
		}
		local[id] = name
		sub.AddNode(simple.Node(id))
	}

	for id := range local {
		if id >= g.nextID {
			continue
		}
		successors := g.graph.From(id)
		for successors.Next() {
			next := successors.Node().ID()
			if _, ok := local[next]; ok {
				sub.SetEdge(sub.NewEdge(sub.Node(id), sub.Node(next)))
			}
		}
	}

	sccs := topo.TarjanSCC(sub)
	groups := make([][]string, 0, len(sccs))
	for _, scc := range sccs {
		group := make([]string, 0, len(scc))
		for _, n := range scc {
			group = append(group, local[n.ID()])
		}
		sort.Strings(group)
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// Len returns the number of names in the graph
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ids)
}
