package commands

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/cli/config"
	"github.com/leapstack-labs/condgraph/internal/cli/output"
	"github.com/leapstack-labs/condgraph/internal/ctmxml"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer

	// Snapshot is never nil. When the export fails to parse it is empty and
	// LoadErr holds the parse error.
	Snapshot *lineage.Snapshot
	LoadErr  error
}

// NewCommandContext loads the configured export and creates a renderer.
// A missing or unreadable export is returned as an error; a malformed one
// yields an empty snapshot with LoadErr set, so commands can still render
// the empty state before failing.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutExport(cmd)

	if err := cmdCtx.Cfg.ValidateExportFile(); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(cmdCtx.Cfg.ExportFile, cmdCtx.Logger)
	if err != nil && !lineage.IsParseError(err) {
		return nil, err
	}
	cmdCtx.Snapshot = snap
	cmdCtx.LoadErr = err
	return cmdCtx, nil
}

// NewCommandContextWithoutExport creates a CommandContext with an empty
// snapshot, for commands that load the export themselves.
func NewCommandContextWithoutExport(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Snapshot: lineage.Empty(),
	}
}

// getConfig returns the loaded configuration, or defaults when none was
// loaded (commands constructed outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// loadSnapshot decodes the export at path. On a parse failure it returns an
// empty snapshot and the error.
func loadSnapshot(path string, logger *slog.Logger) (*lineage.Snapshot, error) {
	records, err := ctmxml.DecodeFile(path)
	if err != nil {
		logger.Warn("export could not be decoded", "file", path, "error", err)
		return lineage.Empty(), err
	}

	snap, err := lineage.Load(records)
	if err != nil {
		logger.Warn("export could not be parsed", "file", path, "error", err)
		return snap, err
	}

	logger.Debug("export loaded", "file", path, "jobs", len(snap.Jobs), "edges", len(snap.Edges))
	return snap, nil
}

// renderLoadFailure prints the empty state for a failed load and returns err.
func (c *CommandContext) renderLoadFailure(title string) error {
	r := c.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]string{"status": lineage.StatusForError(c.LoadErr)})
	default:
		r.Header(1, title)
		r.Status(lineage.StatusForError(c.LoadErr))
	}
	return c.LoadErr
}
