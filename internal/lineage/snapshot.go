package lineage

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/condgraph/internal/dag"
)

// Snapshot is one load of an export: the parsed jobs, the derived edges and
// the graph built from them. It is not modified after Load returns.
type Snapshot struct {
	Jobs  []Job
	Edges []Edge
	Graph *dag.Graph
}

// Load parses records and builds the graph. On failure it returns an empty,
// usable snapshot together with the error, so callers can show an empty view.
func Load(records []Record) (*Snapshot, error) {
	jobs, edges, err := Parse(records)
	if err != nil {
		return Empty(), err
	}
	return &Snapshot{
		Jobs:  jobs,
		Edges: edges,
		Graph: BuildGraph(jobs, edges),
	}, nil
}

// Empty returns a snapshot with no jobs.
func Empty() *Snapshot {
	return &Snapshot{Jobs: []Job{}, Edges: []Edge{}, Graph: dag.NewGraph()}
}

// JobNames returns the sorted graph node names.
func (s *Snapshot) JobNames() []string {
	return s.Graph.NodeIDs()
}

// Job returns the first job with the given name.
func (s *Snapshot) Job(name string) (Job, bool) {
	if n, ok := s.Graph.GetNode(name); ok {
		if job, ok := n.Data.(Job); ok {
			return job, true
		}
	}
	return Job{}, false
}

// Query describes one lineage request against a snapshot.
type Query struct {
	// Seeds are explicit job names.
	Seeds []string
	// Pattern adds every job whose name matches it (case-insensitive regexp).
	Pattern string
	// Depth bounds the hops in each direction; Unbounded for none.
	Depth int
	// MaxFullGraphNodes refuses the unfiltered view above this node count.
	// Zero disables the guard.
	MaxFullGraphNodes int
}

// Result is the answer to a Query.
type Result struct {
	Graph    *dag.Graph
	Seeds    []string
	Levels   map[string]int
	Acyclic  bool
	Roles    map[string]Role
	Filtered bool
	TooLarge bool
	Status   string
	Warnings []string
}

// Run answers q. With no seeds selected the whole graph is returned, unless
// it exceeds q.MaxFullGraphNodes, in which case the result is empty and the
// status says so. Run never fails; problems surface as warnings.
func (s *Snapshot) Run(q Query) *Result {
	res := &Result{}

	seeds, err := SelectSeeds(s.JobNames(), q.Seeds, q.Pattern)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Seeds = seeds

	switch {
	case len(seeds) > 0:
		res.Filtered = true
		res.Graph = Lineage(s.Graph, seeds, q.Depth)
		res.Status = fmt.Sprintf("Filtered: %d jobs", res.Graph.NodeCount())
		if q.Depth > 0 {
			res.Status += fmt.Sprintf(" (depth %d)", q.Depth)
		}
		if res.Graph.NodeCount() == 0 {
			res.Warnings = append(res.Warnings, "no selected job exists in the export")
		}
	case q.MaxFullGraphNodes > 0 && s.Graph.NodeCount() > q.MaxFullGraphNodes:
		res.TooLarge = true
		res.Graph = dag.NewGraph()
		res.Status = fmt.Sprintf("Graph too large (%d jobs), use filters", s.Graph.NodeCount())
	default:
		res.Graph = s.Graph
		res.Status = fmt.Sprintf("Full view: %d jobs", s.Graph.NodeCount())
	}

	res.Levels, res.Acyclic = ComputeLevels(res.Graph)
	if !res.Acyclic {
		res.Warnings = append(res.Warnings, "graph contains a cycle, all jobs placed on level 0")
	}
	res.Roles = Roles(res.Graph, seeds)
	return res
}

// StatusForError describes a load failure for display next to an empty view.
func StatusForError(err error) string {
	var perr *ParseError
	if errors.As(err, &perr) {
		return "Export could not be parsed: " + perr.Error()
	}
	return "Export could not be loaded: " + err.Error()
}
