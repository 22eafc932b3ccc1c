package deps

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GraphDiff represents the difference between two graph states
type GraphDiff struct {
	Hash          string   `json:"hash"` // hash of the newer state
	AddedNodes    []*Node  `json:"addedNodes"`
	RemovedNodes  []string `json:"removedNodes"` // Node IDs
	AddedEdges    []*Edge  `json:"addedEdges"`
	ModifiedEdges []*Edge  `json:"modifiedEdges"` // Edges declared by other modules
	RemovedEdges  []string `json:"removedEdges"`  // Edge IDs (source|target)
	FullGraph     bool     `json:"fullGraph"`     // True if this is a full graph, not a diff
}

// GraphSnapshot is an indexed graph state kept for diffing
type GraphSnapshot struct {
	Hash  string
	Nodes map[string]*Node // nodeID -> node
	Edges map[string]*Edge // edgeKey -> edge
}

// CreateSnapshot indexes graph data and hashes it
func CreateSnapshot(data GraphData) *GraphSnapshot {
	snap := &GraphSnapshot{
		Nodes: make(map[string]*Node, len(data.Nodes)),
		Edges: make(map[string]*Edge, len(data.Edges)),
	}
	for _, node := range data.Nodes {
		snap.Nodes[node.ID] = node
	}
	for _, edge := range data.Edges {
		snap.Edges[edgeID(edge.Source, edge.Target)] = edge
	}

	// GraphData is sorted, so equal graphs encode identically
	jsonData, _ := json.Marshal(data)
	snap.Hash = fmt.Sprintf("%x", sha256.Sum256(jsonData))
	return snap
}

// ComputeDiff computes the changes from old to current. A nil old snapshot
// yields the full current graph.
func ComputeDiff(old, current *GraphSnapshot) *GraphDiff {
	diff := &GraphDiff{
		Hash:          current.Hash,
		AddedNodes:    make([]*Node, 0),
		RemovedNodes:  make([]string, 0),
		AddedEdges:    make([]*Edge, 0),
		ModifiedEdges: make([]*Edge, 0),
		RemovedEdges:  make([]string, 0),
	}
	if old == nil {
		old = &GraphSnapshot{}
		diff.FullGraph = true
	}

	for id, node := range current.Nodes {
		if _, exists := old.Nodes[id]; !exists {
			diff.AddedNodes = append(diff.AddedNodes, node)
		}
	}
	for id := range old.Nodes {
		if _, exists := current.Nodes[id]; !exists {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	for key, edge := range current.Edges {
		prev, exists := old.Edges[key]
		switch {
		case !exists:
			diff.AddedEdges = append(diff.AddedEdges, edge)
		case !sameModules(prev.Modules, edge.Modules):
			diff.ModifiedEdges = append(diff.ModifiedEdges, edge)
		}
	}
	for key := range old.Edges {
		if _, exists := current.Edges[key]; !exists {
			diff.RemovedEdges = append(diff.RemovedEdges, key)
		}
	}

	sort.Slice(diff.AddedNodes, func(i, j int) bool { return diff.AddedNodes[i].ID < diff.AddedNodes[j].ID })
	sort.Strings(diff.RemovedNodes)
	sortEdges(diff.AddedEdges)
	sortEdges(diff.ModifiedEdges)
	sort.Strings(diff.RemovedEdges)
	return diff
}

// Empty reports whether the diff changes nothing
func (d *GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.ModifiedEdges) == 0 && len(d.RemovedEdges) == 0
}

func edgeID(source, target string) string {
	return source + "|" + target
}

func sameModules(a, b []string) bool {
	return strings.Join(a, "\x00") == strings.Join(b, "\x00")
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
