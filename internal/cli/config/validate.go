package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var validOutputs = map[string]bool{"auto": true, "text": true, "markdown": true, "json": true}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Depth < 0 {
		return fmt.Errorf("depth must be 0 (unbounded) or positive, got %d", c.Depth)
	}
	if c.MaxFullGraphNodes < 0 {
		return fmt.Errorf("max_full_graph_nodes must not be negative, got %d", c.MaxFullGraphNodes)
	}
	if !validOutputs[c.OutputFormat] {
		return fmt.Errorf("unknown output format %q (auto|text|markdown|json)", c.OutputFormat)
	}
	if _, err := c.ResolvedTheme(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Serve != nil && (c.Serve.Port < 0 || c.Serve.Port > 65535) {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	return nil
}

// ValidateExportFile checks that an export file is configured and exists.
func (c *Config) ValidateExportFile() error {
	if c.ExportFile == "" {
		return fmt.Errorf("no export file given\nHint: pass --file or set export_file in %s", "condgraph.yaml")
	}
	if _, err := os.Stat(c.ExportFile); os.IsNotExist(err) {
		return fmt.Errorf("export file does not exist: %s", c.ExportFile)
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}
