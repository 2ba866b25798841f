package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// JobsOptions holds options for the jobs command.
type JobsOptions struct {
	Folder string
}

// JobsOutput is the JSON shape of the jobs command.
type JobsOutput struct {
	Jobs  []lineage.Job `json:"jobs"`
	Total int           `json:"total"`
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand() *cobra.Command {
	opts := &JobsOptions{}

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs in the export",
		Long: `List every job with its folder, task type and the same-cycle conditions
it waits for and produces.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output json for machine-readable output.`,
		Example: `  # List all jobs
  condgraph jobs --file export.xml

  # Only jobs of one folder
  condgraph jobs --folder PAYROLL

  # As JSON
  condgraph jobs -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJobs(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Folder, "folder", "", "Only list jobs in this folder (case-insensitive)")

	return cmd
}

func runJobs(cmd *cobra.Command, opts *JobsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Jobs")
	}

	jobs := filterJobs(cmdCtx.Snapshot.Jobs, opts.Folder)
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(JobsOutput{Jobs: jobs, Total: len(jobs)})
	}

	r.Header(1, fmt.Sprintf("Jobs (%s total)", r.Count(len(jobs))))
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{j.Name, j.Folder, j.TaskType, output.FormatList(j.In), output.FormatList(j.Out)})
	}
	r.Table([]string{"Job", "Folder", "Type", "Waits for", "Produces"}, rows)
	return nil
}

func filterJobs(jobs []lineage.Job, folder string) []lineage.Job {
	if folder == "" {
		return jobs
	}
	out := []lineage.Job{}
	for _, j := range jobs {
		if strings.EqualFold(j.Folder, folder) {
			out = append(out, j)
		}
	}
	return out
}
