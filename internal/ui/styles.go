package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles shared by the CLI and the chat TUI.
var Styles = struct {
	Bold       lipgloss.Style
	Dim        lipgloss.Style
	Accent     lipgloss.Style
	Price      lipgloss.Style
	SoldOut    lipgloss.Style
	Header     lipgloss.Style
	SuccessBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Bold:    lipgloss.NewStyle().Bold(true),
	Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	Price:   lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
	SoldOut: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),

	SuccessBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("42")).
		Padding(0, 1).
		Width(60),

	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1).
		Width(60),
}
