package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	dim    lipgloss.Style
	typ    lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{header: plain.Bold(true), ok: plain, warn: plain, bad: plain, dim: plain, typ: plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dd3fc")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308")),
		bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		typ:    lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa")),
	}
}
