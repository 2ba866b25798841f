package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the export for condition and structure problems",
		Long: `Analyze the export for problems that break or obscure the job flow.

The report includes:
- Export summary (jobs, folders, edges, levels)
- Health checks grouped by category (Conditions, Structure)
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  condgraph doctor --file export.xml

  # Output as JSON
  condgraph doctor -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ExportSummary `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// ExportSummary contains export-level statistics.
type ExportSummary struct {
	Jobs       int  `json:"jobs"`
	Folders    int  `json:"folders"`
	Edges      int  `json:"edges"`
	Levels     int  `json:"levels"`
	StartCount int  `json:"start_count"`
	EndCount   int  `json:"end_count"`
	Acyclic    bool `json:"acyclic"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"`
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Export Health Report")
	}

	out := buildDoctorOutput(cmdCtx.Snapshot)
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func buildDoctorOutput(snap *lineage.Snapshot) *DoctorOutput {
	checks := runHealthChecks(snap)

	issues := 0
	for _, c := range checks {
		issues += c.IssueCount
	}

	return &DoctorOutput{
		Summary:         buildExportSummary(snap),
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, len(snap.Jobs)),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

func buildExportSummary(snap *lineage.Snapshot) ExportSummary {
	folders := make(map[string]bool)
	for _, j := range snap.Jobs {
		folders[j.Folder] = true
	}

	levels, acyclic := groupLevels(snap.Graph)
	summary := ExportSummary{
		Jobs:       len(snap.Jobs),
		Folders:    len(folders),
		Edges:      snap.Graph.EdgeCount(),
		StartCount: len(snap.Graph.GetRoots()),
		EndCount:   len(snap.Graph.GetLeaves()),
		Acyclic:    acyclic,
	}
	if acyclic {
		summary.Levels = len(levels)
	}
	return summary
}

// runHealthChecks evaluates every rule against snap, in rule order.
func runHealthChecks(snap *lineage.Snapshot) []HealthCheck {
	produced := make(map[string][]string)
	consumed := make(map[string][]string)
	nameCount := make(map[string]int)
	var selfTriggering []string

	for _, j := range snap.Jobs {
		nameCount[j.Name]++
		outs := make(map[string]bool, len(j.Out))
		for _, c := range j.Out {
			produced[c] = append(produced[c], j.Name)
			outs[c] = true
		}
		for _, c := range j.In {
			consumed[c] = append(consumed[c], j.Name)
			if outs[c] {
				selfTriggering = append(selfTriggering, fmt.Sprintf("%s waits for its own condition %s", j.Name, c))
			}
		}
	}

	var unproduced, unconsumed, duplicates, isolated []string
	for c, jobs := range consumed {
		if len(produced[c]) == 0 {
			unproduced = append(unproduced, fmt.Sprintf("%s (awaited by %s)", c, strings.Join(jobs, ", ")))
		}
	}
	for c, jobs := range produced {
		if len(consumed[c]) == 0 {
			unconsumed = append(unconsumed, fmt.Sprintf("%s (produced by %s)", c, strings.Join(jobs, ", ")))
		}
	}
	for name, n := range nameCount {
		if n > 1 {
			duplicates = append(duplicates, fmt.Sprintf("%s defined %d times", name, n))
		}
	}
	for _, name := range snap.Graph.NodeIDs() {
		if len(snap.Graph.GetParents(name)) == 0 && len(snap.Graph.GetChildren(name)) == 0 {
			isolated = append(isolated, name)
		}
	}

	var cycles []string
	if hasCycle, path := snap.Graph.HasCycle(); hasCycle {
		cycles = append(cycles, strings.Join(path, " -> "))
	}

	for _, s := range [][]string{unproduced, unconsumed, duplicates} {
		sort.Strings(s)
	}

	return []HealthCheck{
		newHealthCheck("EC01", "Awaited conditions no job produces", "conditions", statusError, unproduced),
		newHealthCheck("EC02", "Produced conditions no job awaits", "conditions", statusWarn, unconsumed),
		newHealthCheck("EC03", "Jobs awaiting their own condition", "conditions", statusWarn, selfTriggering),
		newHealthCheck("ES01", "Duplicate job names", "structure", statusError, duplicates),
		newHealthCheck("ES02", "Dependency cycles", "structure", statusError, cycles),
		newHealthCheck("ES03", "Jobs without any edge", "structure", statusWarn, isolated),
	}
}

func newHealthCheck(id, name, group, failStatus string, details []string) HealthCheck {
	status := statusPass
	if len(details) > 0 {
		status = failStatus
	}
	return HealthCheck{
		RuleID:     id,
		Name:       name,
		Group:      group,
		Status:     status,
		IssueCount: len(details),
		Details:    details,
	}
}

// calculateHealthScore computes a health score from 0-100. Errors weigh
// double, and each issue weighs less in larger exports.
func calculateHealthScore(checks []HealthCheck, jobCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if jobCount > 10 {
		basePenalty = 3.0
	}
	if jobCount > 50 {
		basePenalty = 2.0
	}
	if jobCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= float64(check.IssueCount) * basePenalty * 2
		case statusWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return int(score)
}

// generateRecommendations returns up to five recommendations, one per
// failing rule.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		if rec := getRecommendation(check.RuleID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

func getRecommendation(ruleID string) string {
	switch ruleID {
	case "EC01":
		return "Add the missing producer jobs, or fix the condition names the waiting jobs expect"
	case "EC02":
		return "Remove output conditions nothing waits for, or add the missing consumers"
	case "EC03":
		return "Check self-awaiting jobs: they only run if the condition is added by hand"
	case "ES01":
		return "Rename duplicate jobs; lineage only tracks the first definition of a name"
	case "ES02":
		return "Break dependency cycles; jobs in a cycle can never all start"
	case "ES03":
		return "Confirm jobs without edges are meant to run independently"
	default:
		return ""
	}
}

func statusIcon(r *output.Renderer, status string) string {
	styles := r.Styles()
	switch status {
	case statusWarn:
		return styles.Warning.Render("!")
	case statusError:
		return styles.Error.Render("✗")
	default:
		return styles.Start.Render("✓")
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Export Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Export Summary"))
	r.Printf("   Jobs: %s | Folders: %d | Edges: %s\n", r.Count(out.Summary.Jobs), out.Summary.Folders, r.Count(out.Summary.Edges))
	r.Printf("   Levels: %d | Start jobs: %d | End jobs: %d\n", out.Summary.Levels, out.Summary.StartCount, out.Summary.EndCount)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Header2.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		status := fmt.Sprintf("%s %s: %s", statusIcon(r, check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Start
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# Export Health Report")
	r.Println("")

	r.Println("## Export Summary")
	r.Println("")
	r.Printf("- **Jobs**: %d\n", out.Summary.Jobs)
	r.Printf("- **Folders**: %d\n", out.Summary.Folders)
	r.Printf("- **Edges**: %d\n", out.Summary.Edges)
	r.Printf("- **Levels**: %d\n", out.Summary.Levels)
	r.Printf("- **Start Jobs**: %d\n", out.Summary.StartCount)
	r.Printf("- **End Jobs**: %d\n", out.Summary.EndCount)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
