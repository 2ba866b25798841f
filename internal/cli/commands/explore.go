package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/export"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// NewExploreCommand creates the explore command.
func NewExploreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Browse lineage in a terminal UI",
		Long: `Open a full-screen terminal UI over the loaded export.

Enter job names and/or a pattern, press enter, and scroll through the
resulting lineage grouped by level.

Keys:
  tab / shift+tab  Move between the seeds field, the regex field and results
  enter            Run the query
  esc              Jump to the results
  + / -            Increase or decrease depth (in results)
  q, ctrl+c        Quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplore(cmd)
		},
	}
}

func runExplore(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Explore")
	}

	m := newExploreModel(cmdCtx.Snapshot, cmdCtx.Cfg.Depth, cmdCtx.Cfg.MaxFullGraphNodes)
	m.seeds.SetValue(strings.Join(cmdCtx.Cfg.Seeds, " "))
	m.regex.SetValue(cmdCtx.Cfg.Pattern)
	m.run()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	return err
}

type exploreFocus int

const (
	focusSeeds exploreFocus = iota
	focusRegex
	focusResults
)

// headerLines is the number of lines above the results viewport.
const headerLines = 6

type exploreStyles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	status lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	level  lipgloss.Style
	roles  map[lineage.Role]lipgloss.Style
}

func newExploreStyles() exploreStyles {
	return exploreStyles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(8),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		level:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		roles: map[lineage.Role]lipgloss.Style{
			lineage.RoleSeed:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			lineage.RoleStart:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
			lineage.RoleEnd:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			lineage.RoleDefault: lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		},
	}
}

// exploreModel is the bubbletea model behind the explore command.
type exploreModel struct {
	snap     *lineage.Snapshot
	maxNodes int
	depth    int

	seeds   textinput.Model
	regex   textinput.Model
	results viewport.Model
	focus   exploreFocus

	view   *export.View
	styles exploreStyles
}

func newExploreModel(snap *lineage.Snapshot, depth, maxNodes int) *exploreModel {
	seeds := textinput.New()
	seeds.Placeholder = "job names, space separated"
	seeds.Prompt = ""
	seeds.Focus()

	regex := textinput.New()
	regex.Placeholder = "case-insensitive pattern"
	regex.Prompt = ""

	m := &exploreModel{
		snap:     snap,
		maxNodes: maxNodes,
		depth:    depth,
		seeds:    seeds,
		regex:    regex,
		results:  viewport.New(80, 20),
		styles:   newExploreStyles(),
	}
	m.run()
	return m
}

func (m *exploreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.results.Width = msg.Width
		m.results.Height = max(msg.Height-headerLines, 1)
		m.seeds.Width = max(msg.Width-10, 10)
		m.regex.Width = max(msg.Width-10, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *exploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		return m, m.setFocus((m.focus + 1) % 3)
	case "shift+tab":
		return m, m.setFocus((m.focus + 2) % 3)
	case "esc":
		return m, m.setFocus(focusResults)
	}

	if m.focus == focusResults {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "+", "=":
			m.depth++
			m.run()
			return m, nil
		case "-":
			if m.depth > 0 {
				m.depth--
				m.run()
			}
			return m, nil
		case "enter":
			m.run()
			return m, nil
		}
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	if msg.Type == tea.KeyEnter {
		m.run()
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusSeeds {
		m.seeds, cmd = m.seeds.Update(msg)
	} else {
		m.regex, cmd = m.regex.Update(msg)
	}
	return m, cmd
}

func (m *exploreModel) setFocus(f exploreFocus) tea.Cmd {
	m.focus = f
	m.seeds.Blur()
	m.regex.Blur()
	switch f {
	case focusSeeds:
		return m.seeds.Focus()
	case focusRegex:
		return m.regex.Focus()
	}
	return nil
}

// run executes the current query and refreshes the results pane.
func (m *exploreModel) run() {
	res := m.snap.Run(lineage.Query{
		Seeds:             splitSeeds(m.seeds.Value()),
		Pattern:           strings.TrimSpace(m.regex.Value()),
		Depth:             m.depth,
		MaxFullGraphNodes: m.maxNodes,
	})
	m.view = export.NewView(res, m.snap)
	m.results.SetContent(m.renderResults())
	m.results.GotoTop()
}

func (m *exploreModel) renderResults() string {
	var b strings.Builder
	for _, w := range m.view.Warnings {
		b.WriteString(m.styles.warn.Render("! "+w) + "\n")
	}
	for i, n := range m.view.Nodes {
		if i == 0 || m.view.Nodes[i-1].Level != n.Level {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.styles.level.Render(fmt.Sprintf("Level %d", n.Level)) + "\n")
		}
		fmt.Fprintf(&b, "  %s  %s\n", m.styles.roles[n.Role].Render(n.Name), m.styles.help.Render(n.Folder+" / "+n.TaskType))
	}
	return b.String()
}

func (m *exploreModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("condgraph explore") + "\n")
	b.WriteString(m.styles.label.Render("seeds") + m.seeds.View() + "\n")
	b.WriteString(m.styles.label.Render("regex") + m.regex.View() + "\n")
	b.WriteString(m.styles.status.Render(fmt.Sprintf("%s | depth %s", m.view.Status, depthLabel(m.depth))) + "\n")
	b.WriteString(m.styles.help.Render("tab: switch field  enter: run  esc: results  +/-: depth  q: quit") + "\n\n")
	b.WriteString(m.results.View())

	return b.String()
}
