package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bassamadnan/veil/api"
)

var (
	// General
	AppStyle      = lipgloss.NewStyle().Padding(0, 1)
	TitleStyle    = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	SubtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})
	HintStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "241"})

	// Form
	InputBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	InputBusyBoxStyle = InputBoxStyle.BorderForeground(lipgloss.Color("238"))
	ButtonStyle       = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("255")).Padding(0, 2)
	DisabledButton    = lipgloss.NewStyle().Background(lipgloss.Color("238")).Foreground(lipgloss.Color("245")).Padding(0, 2)
	SecondaryButton   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, false).Foreground(lipgloss.Color("250")).Padding(0, 2)
	SpinnerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	// Cards
	ErrorCardStyle  = lipgloss.NewStyle().Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(lipgloss.Color("196")).Foreground(lipgloss.Color("203")).Padding(0, 1).MarginTop(1)
	ResultCardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginTop(1)
	BadgeStyle      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	BarEmptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	ErrorTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	// Inbox list
	EmailListItemStyle = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

	NormalBoxCharStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "238"})
	NormalSubjectStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"})
	NormalSecondaryTextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})

	SelectedBoxCharStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	SelectedSubjectStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	SelectedSecondaryTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("189"))

	EmailListStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(lipgloss.Color("240")).PaddingRight(1)
	EmailListTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1).MarginLeft(1).Foreground(lipgloss.Color("63"))

	// Preview
	ContentBoxStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(0, 1)
	HeaderKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	HeaderValStyle  = lipgloss.NewStyle()
	BodyStyle       = lipgloss.NewStyle().MarginTop(1)

	// Status Bar
	StatusBarSuccessStyle = lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	StatusBarNormalStyle  = lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("250")).Padding(0, 1)
	StatusBarErrorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("196")).Foreground(lipgloss.Color("255")).Padding(0, 1)
)

// Label colours follow the web front-end: green, orange, red.
var labelColors = map[api.Label]lipgloss.Color{
	api.LabelSafe:     lipgloss.Color("35"),
	api.LabelSpam:     lipgloss.Color("208"),
	api.LabelPhishing: lipgloss.Color("196"),
}

func labelColor(l api.Label) lipgloss.Color {
	if c, ok := labelColors[l]; ok {
		return c
	}
	return lipgloss.Color("250")
}

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"

	BarFilled = "█"
	BarEmpty  = "░"
)
