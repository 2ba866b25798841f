// Package export turns a lineage result into serialisable views and writes
// them as JSON, YAML, Graphviz DOT, Mermaid or Markdown.
package export

import (
	"sort"

	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// Node is one job in a view.
type Node struct {
	Name      string       `json:"name" yaml:"name"`
	Folder    string       `json:"folder" yaml:"folder"`
	TaskType  string       `json:"task_type" yaml:"task_type"`
	Level     int          `json:"level" yaml:"level"`
	Role      lineage.Role `json:"role" yaml:"role"`
	InDegree  int          `json:"in_degree" yaml:"in_degree"`
	OutDegree int          `json:"out_degree" yaml:"out_degree"`
}

// View is the display model for a lineage result.
type View struct {
	Status   string         `json:"status" yaml:"status"`
	Seeds    []string       `json:"seeds" yaml:"seeds"`
	Filtered bool           `json:"filtered" yaml:"filtered"`
	Acyclic  bool           `json:"acyclic" yaml:"acyclic"`
	Warnings []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Nodes    []Node         `json:"nodes" yaml:"nodes"`
	Edges    []lineage.Edge `json:"edges" yaml:"edges"`
}

// NewView builds a view of res. Job details come from snap; nodes without a
// job record (edge endpoints only) get the default folder and task type.
// Nodes are ordered by level, then name.
func NewView(res *lineage.Result, snap *lineage.Snapshot) *View {
	v := &View{
		Status:   res.Status,
		Seeds:    append([]string{}, res.Seeds...),
		Filtered: res.Filtered,
		Acyclic:  res.Acyclic,
		Warnings: res.Warnings,
		Nodes:    []Node{},
		Edges:    []lineage.Edge{},
	}

	inDeg := make(map[string]int)
	outDeg := make(map[string]int)
	for _, e := range res.Graph.Edges() {
		v.Edges = append(v.Edges, lineage.Edge{Source: e.From, Target: e.To, Condition: e.Label})
		outDeg[e.From]++
		inDeg[e.To]++
	}

	for _, name := range res.Graph.NodeIDs() {
		n := Node{
			Name:      name,
			Folder:    lineage.DefaultFolder,
			TaskType:  lineage.DefaultTaskType,
			Level:     res.Levels[name],
			Role:      res.Roles[name],
			InDegree:  inDeg[name],
			OutDegree: outDeg[name],
		}
		if snap != nil {
			if job, ok := snap.Job(name); ok {
				n.Folder = job.Folder
				n.TaskType = job.TaskType
			}
		}
		if n.Role == "" {
			n.Role = lineage.RoleDefault
		}
		v.Nodes = append(v.Nodes, n)
	}

	sort.SliceStable(v.Nodes, func(i, j int) bool {
		if v.Nodes[i].Level != v.Nodes[j].Level {
			return v.Nodes[i].Level < v.Nodes[j].Level
		}
		return v.Nodes[i].Name < v.Nodes[j].Name
	})
	return v
}

// ByLevel groups node names by level, in level order.
func (v *View) ByLevel() [][]string {
	var out [][]string
	for _, n := range v.Nodes {
		for len(out) <= n.Level {
			out = append(out, []string{})
		}
		out[n.Level] = append(out[n.Level], n.Name)
	}
	return out
}
