package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// EdgesOutput is the JSON shape of the edges command.
type EdgesOutput struct {
	Edges []lineage.Edge `json:"edges"`
	Total int            `json:"total"`
}

// NewEdgesCommand creates the edges command.
func NewEdgesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edges",
		Short: "List producer to consumer edges",
		Long: `List every edge derived from the export. An edge links the job producing
a condition (sign +, date ODAT) to each job waiting for it (date ODAT).
A job pair linked by several conditions yields one edge per condition.`,
		Example: `  # List all edges
  condgraph edges --file export.xml

  # As JSON
  condgraph edges -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdges(cmd)
		},
	}
}

func runEdges(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Edges")
	}

	edges := cmdCtx.Snapshot.Edges
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(EdgesOutput{Edges: edges, Total: len(edges)})
	}

	r.Header(1, fmt.Sprintf("Edges (%s total)", r.Count(len(edges))))
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.Source, e.Target, e.Condition})
	}
	r.Table([]string{"Source", "Target", "Condition"}, rows)
	return nil
}
