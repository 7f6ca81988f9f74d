package tui

import "github.com/charmbracelet/lipgloss"

// Styles - Minimalistic theme
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	crumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0066cc"))

	currentCrumbStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1)

	directoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0066cc")).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbbbbb"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#006600")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	browserStyle = lipgloss.NewStyle().
			BorderForeground(lipgloss.Color("#999999")).
			Padding(1, 2).
			Align(lipgloss.Center)

	centerStyle = lipgloss.NewStyle().
			Align(lipgloss.Center)

	verticalCenterStyle = lipgloss.NewStyle().
				AlignVertical(lipgloss.Center)
)
