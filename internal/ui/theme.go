package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme defines the picker colors. Host apps can supply their own theme.
type Theme struct {
	TitleFG       color.Color // Dialog title
	DescriptionFG color.Color // Text under the title
	HeaderFG      color.Color // Column headers
	SelectedFG    color.Color // Cursor row foreground
	SelectedBG    color.Color // Cursor row background
	InputFG       color.Color // Search input text
	StatusColor   color.Color // Row and selection counts
	StatusError   color.Color // Error text
	HelpKey       color.Color // Help key labels
	HelpValue     color.Color // Help value text
}

// DefaultTheme returns the built-in palette.
func DefaultTheme() Theme {
	return Theme{
		TitleFG:       lipgloss.Color("81"),  // cyan title
		DescriptionFG: lipgloss.Color("246"), // muted gray
		HeaderFG:      lipgloss.Color("81"),
		SelectedFG:    lipgloss.Color("250"),
		SelectedBG:    lipgloss.Color("24"), // deep teal selection
		InputFG:       lipgloss.Color("246"),
		StatusColor:   lipgloss.Color("81"),
		StatusError:   lipgloss.Color("203"), // softer red for errors
		HelpKey:       lipgloss.Color("81"),
		HelpValue:     lipgloss.Color("245"),
	}
}

type styles struct {
	title       lipgloss.Style
	description lipgloss.Style
	input       lipgloss.Style
	status      lipgloss.Style
	err         lipgloss.Style
	helpKey     lipgloss.Style
	helpValue   lipgloss.Style
}

func (t Theme) styles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			title:       plain.Bold(true),
			description: plain,
			input:       plain,
			status:      plain,
			err:         plain,
			helpKey:     plain,
			helpValue:   plain,
		}
	}
	return styles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(t.TitleFG),
		description: lipgloss.NewStyle().Foreground(t.DescriptionFG),
		input:       lipgloss.NewStyle().Foreground(t.InputFG),
		status:      lipgloss.NewStyle().Foreground(t.StatusColor),
		err:         lipgloss.NewStyle().Foreground(t.StatusError),
		helpKey:     lipgloss.NewStyle().Bold(true).Foreground(t.HelpKey),
		helpValue:   lipgloss.NewStyle().Foreground(t.HelpValue),
	}
}
