// Package config provides configuration management for the condgraph CLI.
//
// Values are layered with koanf: built-in defaults, then the config file
// (condgraph.yaml), then CONDGRAPH_* environment variables, then flags.
package config

import (
	intconfig "github.com/leapstack-labs/condgraph/internal/config"
)

// Theme is an alias for the shared theme type.
type Theme = intconfig.Theme

// Config holds all CLI configuration options.
type Config struct {
	ExportFile        string           `koanf:"export_file"`
	Seeds             []string         `koanf:"seeds"`
	Pattern           string           `koanf:"regex"`
	Depth             int              `koanf:"depth"`
	MaxFullGraphNodes int              `koanf:"max_full_graph_nodes"`
	OutputFormat      string           `koanf:"output"`
	Theme             string           `koanf:"theme"`
	Themes            map[string]Theme `koanf:"themes"`
	Verbose           bool             `koanf:"verbose"`
	LogLevel          string           `koanf:"log_level"`
	Serve             *ServeConfig     `koanf:"serve"`
	Shell             *ShellConfig     `koanf:"shell"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// ShellConfig holds configuration for the interactive shell.
type ShellConfig struct {
	HistoryFile string `koanf:"history_file"`
}

// GetServeConfig returns the serve config with defaults applied for any unset values.
func (c *Config) GetServeConfig() *ServeConfig {
	if c.Serve == nil {
		return &ServeConfig{Port: intconfig.DefaultServePort, Watch: true}
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = intconfig.DefaultServePort
	}
	return c.Serve
}

// GetShellConfig returns the shell config with defaults applied.
func (c *Config) GetShellConfig() *ShellConfig {
	if c.Shell == nil {
		c.Shell = &ShellConfig{}
	}
	if c.Shell.HistoryFile == "" {
		c.Shell.HistoryFile = intconfig.DefaultHistoryFile
	}
	return c.Shell
}

// ResolvedTheme returns the configured theme with overrides applied.
func (c *Config) ResolvedTheme() (Theme, error) {
	return intconfig.ResolveTheme(c.Theme, c.Themes)
}

// Default returns a config holding only the built-in defaults.
func Default() *Config {
	return &Config{
		Depth:             intconfig.DefaultDepth,
		MaxFullGraphNodes: intconfig.DefaultMaxFullGraphNodes,
		OutputFormat:      intconfig.DefaultOutput,
		Theme:             intconfig.DefaultTheme,
		LogLevel:          intconfig.DefaultLogLevel,
		Serve:             &ServeConfig{Port: intconfig.DefaultServePort, Watch: true},
		Shell:             &ShellConfig{HistoryFile: intconfig.DefaultHistoryFile},
	}
}
