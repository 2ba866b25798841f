package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/dag"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// GraphQuerier provides read-only access to graph structure.
type GraphQuerier interface {
	GetParents(string) []string
	GetChildren(string) []string
	NodeCount() int
	EdgeCount() int
}

// LevelJob is one job in the levels JSON output.
type LevelJob struct {
	Name     string   `json:"name"`
	WaitsFor []string `json:"waits_for"`
	Triggers []string `json:"triggers"`
}

// Level groups the jobs of one dependency level.
type Level struct {
	Level int        `json:"level"`
	Jobs  []LevelJob `json:"jobs"`
}

// LevelsOutput is the JSON shape of the levels command.
type LevelsOutput struct {
	Acyclic    bool    `json:"acyclic"`
	Levels     []Level `json:"levels"`
	TotalJobs  int     `json:"total_jobs"`
	TotalEdges int     `json:"total_edges"`
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "levels",
		Aliases: []string{"dag"},
		Short:   "Show jobs grouped by dependency level",
		Long: `Display all jobs grouped by dependency level. Level 0 holds jobs that wait
for no other job; every other job sits one level below its deepest producer.

If the graph contains a cycle no levelling exists, and all jobs are shown on
level 0.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show levels
  condgraph levels --file export.xml

  # Output as JSON
  condgraph levels --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLevels(cmd)
		},
	}
}

func runLevels(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Dependency Levels")
	}

	graph := cmdCtx.Snapshot.Graph
	levels, acyclic := groupLevels(graph)
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return levelsJSON(r, graph, levels, acyclic)
	case output.ModeMarkdown:
		levelsMarkdown(r, graph, levels, acyclic)
	default:
		levelsText(r, graph, levels, acyclic)
	}
	return nil
}

// groupLevels returns job names grouped by level, sorted within a level.
func groupLevels(g *dag.Graph) ([][]string, bool) {
	byJob, acyclic := lineage.ComputeLevels(g)
	grouped := [][]string{}
	for _, name := range g.NodeIDs() {
		lvl := byJob[name]
		for len(grouped) <= lvl {
			grouped = append(grouped, []string{})
		}
		grouped[lvl] = append(grouped[lvl], name)
	}
	return grouped, acyclic
}

const cycleNote = "The graph contains a cycle; all jobs are shown on level 0."

func levelsText(r *output.Renderer, graph GraphQuerier, levels [][]string, acyclic bool) {
	styles := r.Styles()

	r.Header(1, "Dependency Levels")
	if !acyclic {
		r.Println(styles.Warning.Render(cycleNote))
		r.Println("")
	}

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, job := range level {
			r.Printf("  %s\n", styles.JobName.Render(job))
			if deps := graph.GetParents(job); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("waits for:"), strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(job); len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("triggers:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %s jobs, %s edges", r.Count(graph.NodeCount()), r.Count(graph.EdgeCount()))))
}

func levelsMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string, acyclic bool) {
	r.Println(output.FormatHeader(1, "Dependency Levels"))
	r.Println("")
	if !acyclic {
		r.Println("> " + cycleNote)
		r.Println("")
	}

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 && acyclic {
			levelName = "Level 0 (Start)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, job := range level {
			r.Printf("- %s\n", job)
			if deps := graph.GetParents(job); len(deps) > 0 {
				r.Printf("  - waits for: %s\n", strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(job); len(children) > 0 {
				r.Printf("  - triggers: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Jobs", r.Count(graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Edges", r.Count(graph.EdgeCount())))
}

func levelsJSON(r *output.Renderer, graph GraphQuerier, levels [][]string, acyclic bool) error {
	out := LevelsOutput{
		Acyclic:    acyclic,
		Levels:     make([]Level, 0, len(levels)),
		TotalJobs:  graph.NodeCount(),
		TotalEdges: graph.EdgeCount(),
	}

	for i, level := range levels {
		l := Level{Level: i, Jobs: make([]LevelJob, 0, len(level))}
		for _, job := range level {
			l.Jobs = append(l.Jobs, LevelJob{
				Name:     job,
				WaitsFor: nonNil(graph.GetParents(job)),
				Triggers: nonNil(graph.GetChildren(job)),
			})
		}
		out.Levels = append(out.Levels, l)
	}

	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
