package deps

import "sort"

// GraphData is the serialisable view of the dependency graph
type GraphData struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Node is a declaration name in the graph
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"` // last component of the name
}

// Edge is a trigger → dependent connection with the modules whose dumps
// declared it
type Edge struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Modules []string `json:"modules,omitempty"`
}

// Snapshot returns a sorted copy of the graph
func (g *Graph) Snapshot() GraphData {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data := GraphData{
		Nodes: make([]*Node, 0, len(g.ids)),
		Edges: make([]*Edge, 0, len(g.owners)),
	}
	for name := range g.ids {
		data.Nodes = append(data.Nodes, &Node{ID: name, Label: label(name)})
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })

	for key, owners := range g.owners {
		edge := &Edge{Source: g.names[key.from], Target: g.names[key.to]}
		for module := range owners {
			if module != manual {
				edge.Modules = append(edge.Modules, module)
			}
		}
		sort.Strings(edge.Modules)
		data.Edges = append(data.Edges, edge)
	}
	sortEdges(data.Edges)

	return data
}

func label(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
