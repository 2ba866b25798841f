package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/config"
	"github.com/leapstack-labs/condgraph/internal/cli/output"
	intconfig "github.com/leapstack-labs/condgraph/internal/config"
	"github.com/leapstack-labs/condgraph/internal/export"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Regex  string
	Depth  int
	Format string
	Out    string
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage [job...]",
		Short: "Show the upstream and downstream lineage of jobs",
		Long: `Display every job reachable from the selected jobs, in both directions,
grouped by dependency level.

Jobs are selected by name (arguments or the seeds config key) and by
--regex, matched case-insensitively against job names. With no selection the
whole graph is shown, unless it has more jobs than max_full_graph_nodes.

--format writes an export instead of the terminal view: json, yaml, dot,
mermaid or markdown. --out writes it to a file; the format is inferred from
the file extension when --format is not given.`,
		Example: `  # Full lineage of one job
  condgraph lineage PAY_LOAD

  # Everything touching payroll jobs, two hops each way
  condgraph lineage --regex '^pay' --depth 2

  # Graphviz file with the light theme
  condgraph lineage PAY_LOAD --out payroll.dot --theme light`,
		ValidArgsFunction: completeJobNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Regex, "regex", "", "Select jobs whose name matches this pattern (case-insensitive)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max hops in each direction (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Export format ("+strings.Join(export.Formats, "|")+")")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write the export to this file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return export.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runLineage(cmd *cobra.Command, args []string, opts *LineageOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	q := lineage.Query{
		Seeds:             cfg.Seeds,
		Pattern:           cfg.Pattern,
		Depth:             cfg.Depth,
		MaxFullGraphNodes: cfg.MaxFullGraphNodes,
	}
	if len(args) > 0 {
		q.Seeds = args
	}
	if cmd.Flags().Changed("regex") {
		q.Pattern = opts.Regex
	}
	if cmd.Flags().Changed("depth") {
		if opts.Depth < 0 {
			return fmt.Errorf("--depth must be >= 0, got %d", opts.Depth)
		}
		q.Depth = opts.Depth
	}

	format := opts.Format
	if format == "" && opts.Out != "" {
		format = formatFromPath(opts.Out)
	}

	res := cmdCtx.Snapshot.Run(q)
	if cmdCtx.LoadErr != nil {
		res.Status = lineage.StatusForError(cmdCtx.LoadErr)
	}
	cmdCtx.Logger.Debug("lineage computed",
		"seeds", res.Seeds, "depth", q.Depth, "jobs", res.Graph.NodeCount(), "edges", res.Graph.EdgeCount())

	view := export.NewView(res, cmdCtx.Snapshot)
	r := cmdCtx.Renderer

	if format == "" {
		switch r.EffectiveMode() {
		case output.ModeJSON:
			format = export.FormatJSON
		default:
			renderLineage(r, view)
			return cmdCtx.LoadErr
		}
	}

	theme, err := cfg.ResolvedTheme()
	if err != nil {
		return err
	}

	if opts.Out == "" {
		if err := export.Write(r.Writer(), format, view, theme); err != nil {
			return err
		}
		return cmdCtx.LoadErr
	}

	if err := writeExportFile(opts.Out, format, view, theme); err != nil {
		return err
	}
	for _, w := range view.Warnings {
		r.Warning(w)
	}
	_, _ = fmt.Fprintf(r.ErrWriter(), "%s (%s) written to %s\n", view.Status, format, opts.Out)
	return cmdCtx.LoadErr
}

func writeExportFile(path, format string, view *export.View, theme intconfig.Theme) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, format, view, theme); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// formatFromPath infers the export format from a file extension, defaulting
// to JSON.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		return export.FormatDOT
	case ".yaml", ".yml":
		return export.FormatYAML
	case ".mmd", ".mermaid":
		return export.FormatMermaid
	case ".md", ".markdown":
		return export.FormatMarkdown
	default:
		return export.FormatJSON
	}
}

// renderLineage prints a view for a terminal (text) or a pipe (markdown).
func renderLineage(r *output.Renderer, v *export.View) {
	for _, w := range v.Warnings {
		r.Warning(w)
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		_ = export.WriteMarkdown(r.Writer(), v)
		return
	}
	renderLineageText(r, v)
}

func renderLineageText(r *output.Renderer, v *export.View) {
	styles := r.Styles()

	r.Header(1, "Lineage")
	r.Status(v.Status)
	if len(v.Seeds) > 0 {
		r.Printf("%s %s\n", styles.Muted.Render("seeds:"), strings.Join(v.Seeds, ", "))
	}
	r.Println("")

	byName := make(map[string]export.Node, len(v.Nodes))
	for _, n := range v.Nodes {
		byName[n.Name] = n
	}
	parents := make(map[string][]string)
	for _, e := range v.Edges {
		parents[e.Target] = append(parents[e.Target], fmt.Sprintf("%s (%s)", e.Source, e.Condition))
	}

	for level, names := range v.ByLevel() {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", level)))
		for _, name := range names {
			n := byName[name]
			r.Printf("  %s %s\n", roleStyle(styles, n.Role).Render(n.Name), styles.Muted.Render(n.Folder+" / "+n.TaskType))
			if deps := parents[name]; len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("waits for:"), strings.Join(deps, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %s jobs, %s edges", r.Count(len(v.Nodes)), r.Count(len(v.Edges)))))
}

func roleStyle(s *output.Styles, role lineage.Role) lipgloss.Style {
	switch role {
	case lineage.RoleSeed:
		return s.Seed
	case lineage.RoleStart:
		return s.Start
	case lineage.RoleEnd:
		return s.End
	default:
		return s.JobName
	}
}

// completeJobNames completes job names from the configured export.
func completeJobNames(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg := getConfig()
	if cfg.ExportFile == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	snap, err := loadSnapshot(cfg.ExportFile, config.GetLogger(cmd.Context()))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	prefix := strings.ToUpper(toComplete)
	for _, name := range snap.JobNames() {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
