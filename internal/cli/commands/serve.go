package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/condgraph/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch bool
	Open  bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lineage API over HTTP",
		Long: `Start a local HTTP server answering lineage queries as JSON.

Endpoints:
  GET /healthz
  GET /api/status          load ID, time, counts and the last load error
  GET /api/jobs            all jobs
  GET /api/jobs/{name}     one job
  GET /api/edges           all edges
  GET /api/levels          job names grouped by level
  GET /api/lineage         ?seed=A&seed=B&regex=P&depth=N&format=json|yaml|dot|mermaid|markdown
  GET /api/events          server-sent event per reload

With --watch (the default) the export is reloaded whenever it changes. A
failed reload keeps serving the previous snapshot.`,
		Example: `  # Serve on the default port
  condgraph serve --file export.xml

  # Custom port, no reloading
  condgraph serve --port 9000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload the export when it changes")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the lineage endpoint in a browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContextWithoutExport(cmd)
	cfg := cmdCtx.Cfg

	if err := cfg.ValidateExportFile(); err != nil {
		return err
	}

	serveCfg := cfg.GetServeConfig()
	port := serveCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	watch := serveCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	theme, err := cfg.ResolvedTheme()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		ExportFile:        cfg.ExportFile,
		Port:              port,
		Watch:             watch,
		MaxFullGraphNodes: cfg.MaxFullGraphNodes,
		Theme:             theme,
		Logger:            cmdCtx.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if opts.Open {
		go openBrowser(url + "/api/lineage")
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", cfg.ExportFile, url)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(cmd.Context())
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
