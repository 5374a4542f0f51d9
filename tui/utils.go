package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/gmail"
)

// truncate shortens a string to a max length, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// formatEmailDate formats the date for display in the inbox list.
func formatEmailDate(t time.Time) string {
	if t.IsZero() {
		return "???"
	}
	now := time.Now()
	if t.Year() == now.Year() && t.Month() == now.Month() && t.Day() == now.Day() {
		return t.Local().Format("15:04")
	}
	return t.Local().Format("Jan02")
}

// formatEmailListItem renders one inbox entry as a four line box.
// itemContentTextWidth is the width of the text between the vertical bars.
func formatEmailListItem(email gmail.Message, isSelected bool, itemContentTextWidth int) string {
	boxCharStyle, subjectStyle, secondaryTextStyle := NormalBoxCharStyle, NormalSubjectStyle, NormalSecondaryTextStyle
	if isSelected {
		boxCharStyle, subjectStyle, secondaryTextStyle = SelectedBoxCharStyle, SelectedSubjectStyle, SelectedSecondaryTextStyle
	}

	subject := email.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	paddedSubjectText := fmt.Sprintf("%-*s", itemContentTextWidth, truncate(subject, itemContentTextWidth))

	fromShort := email.SenderName()
	if fromShort == "" {
		fromShort = "(Unknown Sender)"
	}
	dateStr := formatEmailDate(email.Date)

	var fromDate string
	if maxFromLen := itemContentTextWidth - len(dateStr) - 1; maxFromLen < 1 {
		fromDate = truncate(dateStr, itemContentTextWidth)
	} else {
		fromDate = truncate(fromShort, maxFromLen) + " " + dateStr
	}
	paddedFromDateText := fmt.Sprintf("%-*s", itemContentTextWidth, truncate(fromDate, itemContentTextWidth))

	horizontalBar := strings.Repeat(BoxHorizontal, itemContentTextWidth+2)
	lines := []string{
		boxCharStyle.Render(BoxTopLeft + horizontalBar + BoxTopRight),
		boxCharStyle.Render(BoxVertical) + " " + subjectStyle.Render(paddedSubjectText) + " " + boxCharStyle.Render(BoxVertical),
		boxCharStyle.Render(BoxVertical) + " " + secondaryTextStyle.Render(paddedFromDateText) + " " + boxCharStyle.Render(BoxVertical),
		boxCharStyle.Render(BoxBottomLeft + horizontalBar + BoxBottomRight),
	}
	return EmailListItemStyle.Render(strings.Join(lines, "\n"))
}

// confidenceBar draws a bar filled to the rounded confidence percentage.
func confidenceBar(r api.PredictionResponse, width int) string {
	if width <= 0 {
		return ""
	}
	pct := r.ConfidencePercent()
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return lipgloss.NewStyle().Foreground(labelColor(r.Prediction)).Render(strings.Repeat(BarFilled, filled)) +
		BarEmptyStyle.Render(strings.Repeat(BarEmpty, width-filled))
}

// RenderResult is the result card: label, rounded percentage, message and
// the four decimal confidence score with its bar.
func RenderResult(r api.PredictionResponse, width int) string {
	color := labelColor(r.Prediction)
	inner := width - ResultCardStyle.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}

	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(string(r.Prediction))
	badge := BadgeStyle.Foreground(color).Render(fmt.Sprintf("%d%% confident", r.ConfidencePercent()))
	gap := inner - lipgloss.Width(label) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	header := label + strings.Repeat(" ", gap) + badge

	message := lipgloss.NewStyle().Foreground(color).Width(inner).Render(r.Message)

	scoreValue := fmt.Sprintf("%.4f", r.Confidence)
	scoreLabel := "Confidence Score"
	scoreGap := inner - len(scoreLabel) - len(scoreValue)
	if scoreGap < 1 {
		scoreGap = 1
	}
	score := SubtitleStyle.Render(scoreLabel) + strings.Repeat(" ", scoreGap) + lipgloss.NewStyle().Bold(true).Render(scoreValue)

	body := lipgloss.JoinVertical(lipgloss.Left, header, message, "", score, confidenceBar(r, inner))
	return ResultCardStyle.BorderForeground(color).Width(width - ResultCardStyle.GetHorizontalBorderSize()).Render(body)
}

// RenderError is the error card.
func RenderError(msg string, width int) string {
	return ErrorCardStyle.Width(width - ErrorCardStyle.GetHorizontalBorderSize()).Render(msg)
}
