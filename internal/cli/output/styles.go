package output

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	JobName lipgloss.Style
	Seed    lipgloss.Style
	Start   lipgloss.Style
	End     lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds styles bound to r so colour follows r's profile.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header2: r.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		JobName: r.NewStyle().Foreground(lipgloss.Color("51")),
		Seed:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Start:   r.NewStyle().Foreground(lipgloss.Color("46")),
		End:     r.NewStyle().Foreground(lipgloss.Color("203")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("220")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}
