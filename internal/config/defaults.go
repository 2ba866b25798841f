// Package config provides shared configuration values for condgraph:
// defaults, display themes and config file discovery. It is decoupled from
// CLI concerns so the server and exporters can use it directly.
package config

// Default configuration values.
const (
	DefaultMaxFullGraphNodes = 500
	DefaultDepth             = 0 // unbounded
	DefaultTheme             = "dark"
	DefaultOutput            = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel          = "info"
	DefaultServePort         = 8765
	DefaultHistoryFile       = ".condgraph_history"
)
