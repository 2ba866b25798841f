package lineage

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/condgraph/internal/dag"
)

// Parse resolves same-cycle conditions for every record and derives the
// producer -> consumer edges. Jobs come back in record order. An edge is
// emitted for every (real input, producer of that input) pair, so a job
// waiting on a condition nobody produces yields no edge.
//
// A record with an empty name makes the whole input malformed: Parse then
// returns a *ParseError and no jobs or edges.
func Parse(records []Record) ([]Job, []Edge, error) {
	jobs := make([]Job, 0, len(records))
	producers := make(map[string][]string)

	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, nil, &ParseError{Msg: fmt.Sprintf("job #%d has no name", i+1)}
		}

		job := Job{
			Name:     name,
			Folder:   rec.Folder,
			TaskType: rec.TaskType,
			In:       []string{},
			Out:      []string{},
		}
		for _, out := range rec.Out {
			if out.Sign == SignProduced && out.Date == CurrentRunDate {
				job.Out = append(job.Out, out.Name)
				producers[out.Name] = append(producers[out.Name], name)
			}
		}
		for _, in := range rec.In {
			if in.Date == CurrentRunDate {
				job.In = append(job.In, in.Name)
			}
		}
		jobs = append(jobs, job)
	}

	edges := []Edge{}
	for _, job := range jobs {
		for _, cond := range job.In {
			for _, producer := range producers[cond] {
				edges = append(edges, Edge{Source: producer, Target: job.Name, Condition: cond})
			}
		}
	}

	return jobs, edges, nil
}

// BuildGraph creates one node per job and one labelled edge per edge record.
// Node data is the Job value; when a name repeats the first job keeps the
// node. Edges referencing a job that is not in jobs add a bare node for it.
func BuildGraph(jobs []Job, edges []Edge) *dag.Graph {
	g := dag.NewGraph()
	for _, job := range jobs {
		if !g.HasNode(job.Name) {
			g.AddNode(job.Name, job)
		}
	}
	for _, e := range edges {
		if !g.HasNode(e.Source) {
			g.AddNode(e.Source, nil)
		}
		if !g.HasNode(e.Target) {
			g.AddNode(e.Target, nil)
		}
		// both endpoints exist, AddEdge cannot fail
		_ = g.AddEdge(e.Source, e.Target, e.Condition)
	}
	return g
}

// Lineage returns the subgraph induced by the seeds and their ancestors and
// descendants. With depth <= 0 reachability is transitive; otherwise only
// nodes within depth hops in either direction are kept. Seeds that are not in
// the graph are skipped.
func Lineage(g *dag.Graph, seeds []string, depth int) *dag.Graph {
	nodes := LineageNodes(g, seeds, depth)
	return g.Subgraph(nodes)
}

// LineageNodes returns the sorted node set Lineage would keep.
func LineageNodes(g *dag.Graph, seeds []string, depth int) []string {
	set := make(map[string]bool)
	for _, seed := range seeds {
		seed = strings.TrimSpace(seed)
		if !g.HasNode(seed) {
			continue
		}
		set[seed] = true
		for _, n := range g.Ancestors(seed, depth) {
			set[n] = true
		}
		for _, n := range g.Descendants(seed, depth) {
			set[n] = true
		}
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return sortedCopy(out)
}

// Levels assigns every node its topological generation. A cyclic graph has
// no generations, so every node is placed on level 0.
func Levels(g *dag.Graph) map[string]int {
	levels, _ := ComputeLevels(g)
	return levels
}

// ComputeLevels is Levels plus a flag that is false when the cycle fallback
// was applied.
func ComputeLevels(g *dag.Graph) (map[string]int, bool) {
	levels := make(map[string]int, g.NodeCount())

	generations, err := g.Generations()
	if err != nil {
		for _, id := range g.NodeIDs() {
			levels[id] = 0
		}
		return levels, false
	}

	for i, gen := range generations {
		for _, id := range gen {
			levels[id] = i
		}
	}
	return levels, true
}
