package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/export"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

const shellPrompt = "condgraph> "

var shellDotCommands = []string{".help", ".depth", ".regex", ".all", ".jobs", ".levels", ".quit", ".exit"}

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Explore lineage interactively",
		Long: `Start an interactive shell over the loaded export.

Type one or more job names (separated by spaces or commas) to show their
lineage. Tab completes job names. Dot-commands change the session settings;
type .help to list them.`,
		Example: `  condgraph shell --file export.xml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd)
		},
	}
}

func runShell(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.LoadErr != nil {
		return cmdCtx.renderLoadFailure("Shell")
	}

	sess := newShellSession(cmdCtx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     cmdCtx.Cfg.GetShellConfig().HistoryFile,
		AutoComplete:    newJobCompleter(cmdCtx.Snapshot.JobNames()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "condgraph shell (%s jobs, %s edges)\n",
		cmdCtx.Renderer.Count(len(cmdCtx.Snapshot.Jobs)), cmdCtx.Renderer.Count(len(cmdCtx.Snapshot.Edges)))
	_, _ = fmt.Fprintln(out, "Type job names to trace them, .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := sess.handleLine(line); quit {
			return nil
		}
	}
}

// shellSession holds the settings one shell applies to every query.
type shellSession struct {
	snap     *lineage.Snapshot
	r        *output.Renderer
	maxNodes int
	depth    int
	regex    string
}

func newShellSession(c *CommandContext) *shellSession {
	return &shellSession{
		snap:     c.Snapshot,
		r:        c.Renderer,
		maxNodes: c.Cfg.MaxFullGraphNodes,
		depth:    c.Cfg.Depth,
		regex:    c.Cfg.Pattern,
	}
}

// handleLine runs one input line and reports whether the shell should exit.
func (s *shellSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	s.query(splitSeeds(line))
	s.r.Println("")
	return false
}

func (s *shellSession) query(seeds []string) {
	res := s.snap.Run(lineage.Query{
		Seeds:             seeds,
		Pattern:           s.regex,
		Depth:             s.depth,
		MaxFullGraphNodes: s.maxNodes,
	})
	renderLineage(s.r, export.NewView(res, s.snap))
}

func (s *shellSession) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.r.ErrWriter(), "Error: "+format+"\n", args...)
}

func (s *shellSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(s.r.Writer())

	case ".depth":
		if arg == "" {
			s.r.Printf("depth: %s\n", depthLabel(s.depth))
			break
		}
		d, err := strconv.Atoi(arg)
		if err != nil || d < 0 {
			s.errorf("depth must be a number >= 0, got %q", arg)
			break
		}
		s.depth = d
		s.r.Printf("depth: %s\n", depthLabel(s.depth))

	case ".regex":
		if _, err := lineage.SelectSeeds(nil, nil, arg); err != nil {
			s.errorf("%v", err)
			break
		}
		s.regex = arg
		if arg == "" {
			s.r.Println("regex cleared")
		} else {
			s.r.Printf("regex: %s\n", arg)
		}

	case ".all":
		s.query(nil)
		s.r.Println("")

	case ".jobs":
		prefix := strings.ToUpper(arg)
		for _, name := range s.snap.JobNames() {
			if strings.HasPrefix(strings.ToUpper(name), prefix) {
				s.r.Println(name)
			}
		}

	case ".levels":
		levels, acyclic := groupLevels(s.snap.Graph)
		if s.r.EffectiveMode() == output.ModeMarkdown {
			levelsMarkdown(s.r, s.snap.Graph, levels, acyclic)
		} else {
			levelsText(s.r, s.snap.Graph, levels, acyclic)
		}

	default:
		s.errorf("unknown command: %s (type .help for commands)", command)
	}
	return false
}

func depthLabel(d int) string {
	if d <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(d)
}

// splitSeeds splits a line on whitespace and commas.
func splitSeeds(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  JOB [JOB...]    Show the lineage of the given jobs
  .all            Show the whole graph (subject to max_full_graph_nodes)
  .depth [N]      Show or set the max hops each way (0 = unlimited)
  .regex [P]      Also select jobs matching P; no argument clears it
  .jobs [PREFIX]  List job names
  .levels         Show all jobs grouped by dependency level
  .help           Show this help message
  .quit / .exit   Exit the shell

Tips:
  - Tab completes job names and commands
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// jobCompleter completes the word under the cursor against job names, or
// against dot-commands at the start of the line.
type jobCompleter struct {
	names []string
}

func newJobCompleter(names []string) *jobCompleter {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return &jobCompleter{names: sorted}
}

// Do implements readline.AutoCompleter.
func (c *jobCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && line[start-1] != ' ' && line[start-1] != ',' {
		start--
	}
	word := string(line[start:pos])

	candidates := c.names
	if start == 0 && strings.HasPrefix(word, ".") {
		candidates = shellDotCommands
	}

	var out [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, word) {
			out = append(out, []rune(cand[len(word):]))
		}
	}
	return out, len([]rune(word))
}

var _ readline.AutoCompleter = (*jobCompleter)(nil)
