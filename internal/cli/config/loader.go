package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/condgraph/internal/config"
)

// EnvPrefix is the prefix for environment variable overrides.
// A double underscore separates nesting levels: CONDGRAPH_SERVE__PORT -> serve.port.
const EnvPrefix = "CONDGRAPH_"

// flagKeys maps flag names whose config key is not the plain snake_case form.
var flagKeys = map[string]string{
	"file":      "export_file",
	"max-nodes": "max_full_graph_nodes",
}

// Package-level config file tracking
var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// ResetConfig clears the loaded state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// inferProjectRoot picks the directory relative paths resolve against:
// the explicit config file's directory, else the nearest directory upward
// from CWD holding a config file, else CWD.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to CWD, not to the project root.
	var flagExportFile string
	if flags != nil && flags.Changed("file") {
		if v, _ := flags.GetString("file"); v != "" {
			flagExportFile, _ = filepath.Abs(v)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"depth":                intconfig.DefaultDepth,
		"max_full_graph_nodes": intconfig.DefaultMaxFullGraphNodes,
		"output":               intconfig.DefaultOutput,
		"theme":                intconfig.DefaultTheme,
		"log_level":            intconfig.DefaultLogLevel,
		"verbose":              false,
		"serve.port":           intconfig.DefaultServePort,
		"serve.watch":          true,
		"shell.history_file":   intconfig.DefaultHistoryFile,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables
	// Transform: CONDGRAPH_EXPORT_FILE -> export_file, CONDGRAPH_SERVE__PORT -> serve.port
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct. Comma-separated strings (env vars)
	// decode into slices.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths
	cfg.ProjectRoot = projectRoot
	if flagExportFile != "" {
		cfg.ExportFile = flagExportFile
	} else {
		cfg.ExportFile = resolvePathRelativeTo(cfg.ExportFile, projectRoot)
	}
	shell := cfg.GetShellConfig()
	shell.HistoryFile = resolvePathRelativeTo(shell.HistoryFile, projectRoot)
	cfg.GetServeConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}
