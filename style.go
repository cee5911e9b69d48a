package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render
)

// setupStyles drops colors when stdout is not a terminal.
func setupStyles() {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
