package config

import (
	"fmt"
	"sort"
	"strings"
)

// NodeStyle is the fill and border colour for one node role.
type NodeStyle struct {
	Fill   string `koanf:"fill" json:"fill" yaml:"fill"`
	Border string `koanf:"border" json:"border" yaml:"border"`
}

// Theme holds the colours exporters use. It is always passed explicitly to
// the writer that needs it.
type Theme struct {
	Background string    `koanf:"background" json:"background" yaml:"background"`
	Text       string    `koanf:"text" json:"text" yaml:"text"`
	Edge       string    `koanf:"edge" json:"edge" yaml:"edge"`
	Font       string    `koanf:"font" json:"font" yaml:"font"`
	Default    NodeStyle `koanf:"default" json:"default" yaml:"default"`
	Seed       NodeStyle `koanf:"seed" json:"seed" yaml:"seed"`
	Start      NodeStyle `koanf:"start" json:"start" yaml:"start"`
	End        NodeStyle `koanf:"end" json:"end" yaml:"end"`
}

// DefaultThemes returns the built-in themes keyed by name.
func DefaultThemes() map[string]Theme {
	return map[string]Theme{
		"dark": {
			Background: "#121212",
			Text:       "#ffffff",
			Edge:       "#666666",
			Font:       "Segoe UI",
			Default:    NodeStyle{Fill: "#0a2e36", Border: "#00d4ff"},
			Seed:       NodeStyle{Fill: "#4a2c0a", Border: "#ff9900"},
			Start:      NodeStyle{Fill: "#0a3618", Border: "#00ff41"},
			End:        NodeStyle{Fill: "#360a0a", Border: "#ff3333"},
		},
		"light": {
			Background: "#ffffff",
			Text:       "#000000",
			Edge:       "#555555",
			Font:       "Segoe UI",
			Default:    NodeStyle{Fill: "#bbdefb", Border: "#0d47a1"},
			Seed:       NodeStyle{Fill: "#ffe0b2", Border: "#e65100"},
			Start:      NodeStyle{Fill: "#c8e6c9", Border: "#1b5e20"},
			End:        NodeStyle{Fill: "#ffcdd2", Border: "#b71c1c"},
		},
	}
}

// ResolveTheme looks name up in overrides and the built-in themes. An
// override of a built-in theme only replaces the fields it sets.
func ResolveTheme(name string, overrides map[string]Theme) (Theme, error) {
	key := strings.ToLower(name)
	builtin := DefaultThemes()

	base, hasBase := builtin[key]
	over, hasOver := overrides[key]
	switch {
	case hasBase && hasOver:
		return mergeTheme(base, over), nil
	case hasBase:
		return base, nil
	case hasOver:
		return mergeTheme(builtin[DefaultTheme], over), nil
	}

	return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(overrides), ", "))
}

// ThemeNames lists built-in and configured theme names, sorted.
func ThemeNames(overrides map[string]Theme) []string {
	set := map[string]bool{}
	for name := range DefaultThemes() {
		set[name] = true
	}
	for name := range overrides {
		set[strings.ToLower(name)] = true
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mergeTheme(base, over Theme) Theme {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	style := func(a, b NodeStyle) NodeStyle {
		return NodeStyle{Fill: pick(a.Fill, b.Fill), Border: pick(a.Border, b.Border)}
	}
	return Theme{
		Background: pick(base.Background, over.Background),
		Text:       pick(base.Text, over.Text),
		Edge:       pick(base.Edge, over.Edge),
		Font:       pick(base.Font, over.Font),
		Default:    style(base.Default, over.Default),
		Seed:       style(base.Seed, over.Seed),
		Start:      style(base.Start, over.Start),
		End:        style(base.End, over.End),
	}
}
