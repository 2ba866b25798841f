// Package dag provides the directed job graph used for lineage queries.
// Edges carry a label (the condition linking producer and consumer) and
// several edges between the same pair of nodes are kept as separate records.
package dag

import (
	"fmt"
	"sort"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (job name)
	ID string
	// Data holds arbitrary node data
	Data interface{}
}

// Edge is a labelled directed edge from producer to consumer.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph represents a directed graph with labelled multi-edges.
// It is not safe for concurrent mutation; treat a built graph as read-only.
type Graph struct {
	nodes    map[string]*Node
	order    []string            // node insertion order
	edges    []Edge              // every edge record, in insertion order
	children map[string][]string // parent -> distinct children
	parents  map[string][]string // child -> distinct parents
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data interface{}) {
	if n, exists := g.nodes[id]; exists {
		// Update data if node already exists
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
	g.children[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child labelled with label.
// Both nodes must exist. Repeated edges are all retained; self-loops are allowed.
func (g *Graph) AddEdge(parentID, childID, label string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	g.edges = append(g.edges, Edge{From: parentID, To: childID, Label: label})

	if !contains(g.children[parentID], childID) {
		g.children[parentID] = append(g.children[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// GetParents returns the distinct direct producers of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the distinct direct consumers of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.children[id]
}

// NodeIDs returns all node IDs sorted.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns a copy of all edge records in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edge records, counting parallel edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.children[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Generations groups nodes into topological generations.
// Generation 0 holds the sources; a node sits one generation after the latest
// of its parents. Returns an error if the graph contains a cycle.
func (g *Graph) Generations() ([][]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.parents[id])
	}

	var current []string
	for id, d := range inDegree {
		if d == 0 {
			current = append(current, id)
		}
	}

	var generations [][]string
	placed := 0
	for len(current) > 0 {
		sort.Strings(current)
		generations = append(generations, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, childID := range g.children[id] {
				inDegree[childID]--
				if inDegree[childID] == 0 {
					next = append(next, childID)
				}
			}
		}
		current = next
	}

	if placed != len(g.nodes) {
		return nil, fmt.Errorf("cycle detected: %d of %d nodes could not be ordered", len(g.nodes)-placed, len(g.nodes))
	}
	return generations, nil
}

// Ancestors returns the nodes upstream of id within maxDepth hops.
// A maxDepth of zero or less means unbounded. The node itself is excluded
// unless it lies on a cycle through itself.
func (g *Graph) Ancestors(id string, maxDepth int) []string {
	return g.walk(id, maxDepth, g.parents)
}

// Descendants returns the nodes downstream of id within maxDepth hops.
// A maxDepth of zero or less means unbounded.
func (g *Graph) Descendants(id string, maxDepth int) []string {
	return g.walk(id, maxDepth, g.children)
}

// walk performs a breadth-first traversal over adj, so a node is always
// reached at its shortest hop distance.
func (g *Graph) walk(id string, maxDepth int, adj map[string][]string) []string {
	if _, ok := g.nodes[id]; !ok {
		return []string{}
	}

	seen := map[string]bool{}
	frontier := []string{id}
	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth > maxDepth {
			break
		}
		var next []string
		for _, cur := range frontier {
			for _, nb := range adj[cur] {
				if !seen[nb] {
					seen[nb] = true
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// GetRoots returns nodes with no parents.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns nodes with no children.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Subgraph returns a new graph induced by nodeIDs: every listed node that
// exists, and every edge record whose endpoints are both kept.
func (g *Graph) Subgraph(nodeIDs []string) *Graph {
	subgraph := NewGraph()
	nodeSet := make(map[string]bool)

	ids := append([]string(nil), nodeIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if node, exists := g.nodes[id]; exists && !nodeSet[id] {
			nodeSet[id] = true
			subgraph.AddNode(id, node.Data)
		}
	}

	for _, e := range g.edges {
		if nodeSet[e.From] && nodeSet[e.To] {
			_ = subgraph.AddEdge(e.From, e.To, e.Label)
		}
	}

	return subgraph
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
