package session

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	account lipgloss.Style
	detail  lipgloss.Style
	meta    lipgloss.Style
	online  lipgloss.Style
	offline lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		account: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		online:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		offline: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}
