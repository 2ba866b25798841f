package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/condgraph/internal/config"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// Format names accepted by Write.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatDOT      = "dot"
	FormatMermaid  = "mermaid"
	FormatMarkdown = "markdown"
)

// Formats lists the supported formats.
var Formats = []string{FormatJSON, FormatYAML, FormatDOT, FormatMermaid, FormatMarkdown}

// Write writes v in the named format. theme colours the DOT and Mermaid output.
func Write(w io.Writer, format string, v *View, theme config.Theme) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	case FormatDOT:
		return WriteDOT(w, v, theme)
	case FormatMermaid:
		return WriteMermaid(w, v, theme)
	case FormatMarkdown:
		return WriteMarkdown(w, v)
	default:
		return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v *View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v *View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func styleFor(theme config.Theme, role lineage.Role) config.NodeStyle {
	switch role {
	case lineage.RoleSeed:
		return theme.Seed
	case lineage.RoleStart:
		return theme.Start
	case lineage.RoleEnd:
		return theme.End
	default:
		return theme.Default
	}
}

// WriteDOT writes v as a left-to-right Graphviz digraph with one rank per level.
func WriteDOT(w io.Writer, v *View, theme config.Theme) error {
	var b strings.Builder

	b.WriteString("digraph condgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	fmt.Fprintf(&b, "  bgcolor=%s;\n", dotQuote(theme.Background))
	fmt.Fprintf(&b, "  node [shape=box, style=\"rounded,filled\", fontname=%s, fontcolor=%s];\n", dotQuote(theme.Font), dotQuote(theme.Text))
	fmt.Fprintf(&b, "  edge [color=%s, fontname=%s, fontcolor=%s, fontsize=10];\n", dotQuote(theme.Edge), dotQuote(theme.Font), dotQuote(theme.Text))
	b.WriteString("\n")

	for _, n := range v.Nodes {
		st := styleFor(theme, n.Role)
		// \n inside a quoted DOT string is a centred line break.
		label := `"` + dotEscape(n.Name) + `\n` + dotEscape(n.Folder) + `"`
		fmt.Fprintf(&b, "  %s [label=%s, fillcolor=%s, color=%s];\n", dotQuote(n.Name), label, dotQuote(st.Fill), dotQuote(st.Border))
	}

	for _, names := range v.ByLevel() {
		if len(names) < 2 {
			continue
		}
		quoted := make([]string, len(names))
		for i, name := range names {
			quoted[i] = dotQuote(name)
		}
		fmt.Fprintf(&b, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
	}

	if len(v.Edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range v.Edges {
		fmt.Fprintf(&b, "  %s -> %s [label=%s];\n", dotQuote(e.Source), dotQuote(e.Target), dotQuote(e.Condition))
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// dotEscape escapes the characters DOT treats specially inside a quoted ID.
func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func dotQuote(s string) string {
	return `"` + dotEscape(s) + `"`
}

var mermaidRoles = []lineage.Role{lineage.RoleDefault, lineage.RoleSeed, lineage.RoleStart, lineage.RoleEnd}

// WriteMermaid writes v as a Mermaid flowchart with one class per node role.
func WriteMermaid(w io.Writer, v *View, theme config.Theme) error {
	var b strings.Builder

	b.WriteString("flowchart LR\n")
	for _, role := range mermaidRoles {
		st := styleFor(theme, role)
		fmt.Fprintf(&b, "  classDef %s fill:%s,stroke:%s,color:%s;\n", role, st.Fill, st.Border, theme.Text)
	}
	ids := make(map[string]string, len(v.Nodes))
	for i, n := range v.Nodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.Name] = id
		fmt.Fprintf(&b, "  %s[\"%s\"]:::%s\n", id, mermaidEscape(n.Name), n.Role)
	}
	for _, e := range v.Edges {
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", ids[e.Source], mermaidEscape(e.Condition), ids[e.Target])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func mermaidEscape(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;")
	return r.Replace(s)
}

// WriteMarkdown writes v as markdown: status, jobs grouped by level and an
// edge table.
func WriteMarkdown(w io.Writer, v *View) error {
	var b strings.Builder

	b.WriteString("# Lineage\n\n")
	fmt.Fprintf(&b, "**Status:** %s\n\n", v.Status)
	if len(v.Seeds) > 0 {
		fmt.Fprintf(&b, "**Seeds:** %s\n\n", strings.Join(v.Seeds, ", "))
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(&b, "> warning: %s\n\n", warn)
	}

	byName := make(map[string]Node, len(v.Nodes))
	for _, n := range v.Nodes {
		byName[n.Name] = n
	}
	for level, names := range v.ByLevel() {
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Level %d\n\n", level)
		for _, name := range names {
			n := byName[name]
			fmt.Fprintf(&b, "- `%s` (%s, %s, %s)\n", n.Name, n.Folder, n.TaskType, n.Role)
		}
		b.WriteString("\n")
	}

	if len(v.Edges) > 0 {
		b.WriteString("## Edges\n\n")
		b.WriteString("| Source | Target | Condition |\n")
		b.WriteString("|--------|--------|-----------|\n")
		for _, e := range v.Edges {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", markdownCell(e.Source), markdownCell(e.Target), markdownCell(e.Condition))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// markdownCell escapes pipes so a value cannot split a table row.
func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
