package dag

import (
	"reflect"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("a", "job A")
	g.AddNode("b", "job B")
	g.AddNode("c", "job C")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	if err := g.AddEdge("a", "b", "A_OK"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("b", "c", "B_OK"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "nonexistent", "X"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a", "X"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_AddEdge_SelfLoopAllowed(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "a", "LOOP"); err != nil {
		t.Fatalf("self-loop should be accepted: %v", err)
	}
	if hasCycle, _ := g.HasCycle(); !hasCycle {
		t.Error("self-loop should be reported as a cycle")
	}
}

func TestGraph_MultiEdgesRetained(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	_ = g.AddEdge("a", "b", "C1")
	_ = g.AddEdge("a", "b", "C2")

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edge records, got %d", g.EdgeCount())
	}
	if len(g.GetChildren("a")) != 1 {
		t.Errorf("expected 1 distinct child, got %v", g.GetChildren("a"))
	}

	labels := []string{}
	for _, e := range g.Edges() {
		labels = append(labels, e.Label)
	}
	if !reflect.DeepEqual(labels, []string{"C1", "C2"}) {
		t.Errorf("edge labels = %v", labels)
	}
}

func TestGraph_GetParentsAndChildren(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)

	_ = g.AddEdge("a", "b", "x")
	_ = g.AddEdge("a", "c", "x")
	_ = g.AddEdge("b", "c", "y")

	if parents := g.GetParents("c"); len(parents) != 2 {
		t.Errorf("expected c to have 2 parents, got %d", len(parents))
	}
	if children := g.GetChildren("a"); len(children) != 2 {
		t.Errorf("expected a to have 2 children, got %d", len(children))
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b", "")
	_ = g.AddEdge("b", "c", "")

	if hasCycle, path := g.HasCycle(); hasCycle {
		t.Errorf("expected no cycle, but found: %v", path)
	}

	_ = g.AddEdge("c", "a", "")
	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Error("expected cycle to be detected")
	}
	if len(path) == 0 {
		t.Error("expected cycle path to be non-empty")
	}
}

func TestGraph_Generations(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"extract1", "extract2", "load1", "load2", "report"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("extract1", "load1", "")
	_ = g.AddEdge("extract2", "load2", "")
	_ = g.AddEdge("load1", "report", "")
	_ = g.AddEdge("load2", "report", "")
	// longer path decides the generation
	_ = g.AddEdge("extract1", "report", "")

	generations, err := g.Generations()
	if err != nil {
		t.Fatalf("failed to get generations: %v", err)
	}

	want := [][]string{
		{"extract1", "extract2"},
		{"load1", "load2"},
		{"report"},
	}
	if !reflect.DeepEqual(generations, want) {
		t.Errorf("generations = %v, want %v", generations, want)
	}
}

func TestGraph_Generations_Cycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	_ = g.AddEdge("a", "b", "")
	_ = g.AddEdge("b", "a", "")

	if _, err := g.Generations(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_AncestorsDescendants(t *testing.T) {
	// a -> b -> c -> d, e isolated
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b", "")
	_ = g.AddEdge("b", "c", "")
	_ = g.AddEdge("c", "d", "")

	tests := []struct {
		name  string
		got   []string
		want  []string
	}{
		{"ancestors unbounded", g.Ancestors("d", 0), []string{"a", "b", "c"}},
		{"ancestors depth 1", g.Ancestors("d", 1), []string{"c"}},
		{"ancestors depth 2", g.Ancestors("d", 2), []string{"b", "c"}},
		{"descendants unbounded", g.Descendants("a", 0), []string{"b", "c", "d"}},
		{"descendants depth 1", g.Descendants("b", 1), []string{"c"}},
		{"isolated", g.Descendants("e", 0), []string{}},
		{"unknown", g.Ancestors("zzz", 0), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestGraph_Descendants_ShortestHop(t *testing.T) {
	// a -> b -> c and a -> c: c is one hop away even though a longer path exists
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b", "")
	_ = g.AddEdge("b", "c", "")
	_ = g.AddEdge("a", "c", "")

	if got := g.Descendants("a", 1); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("got %v", got)
	}
}

func TestGraph_GetRootsAndLeaves(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "c", "")
	_ = g.AddEdge("b", "c", "")

	if roots := g.GetRoots(); !reflect.DeepEqual(roots, []string{"a", "b", "d"}) {
		t.Errorf("roots = %v", roots)
	}
	if leaves := g.GetLeaves(); !reflect.DeepEqual(leaves, []string{"c", "d"}) {
		t.Errorf("leaves = %v", leaves)
	}
}

func TestGraph_Subgraph(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, id+"-data")
	}
	_ = g.AddEdge("a", "b", "x")
	_ = g.AddEdge("a", "b", "y")
	_ = g.AddEdge("b", "c", "z")
	_ = g.AddEdge("c", "d", "w")

	sub := g.Subgraph([]string{"a", "b", "c", "missing"})

	if sub.NodeCount() != 3 {
		t.Errorf("expected 3 nodes in subgraph, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 3 {
		t.Errorf("expected 3 edges in subgraph, got %d", sub.EdgeCount())
	}
	if sub.HasNode("d") || sub.HasNode("missing") {
		t.Error("subgraph should only contain listed, existing nodes")
	}
	if n, _ := sub.GetNode("a"); n.Data != "a-data" {
		t.Errorf("node data not carried over: %v", n.Data)
	}
}
