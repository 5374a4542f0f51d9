package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

// predictCmd runs a submission off the update loop.
func predictCmd(ctx context.Context, p scanner.Predictor, task scanner.Task) tea.Cmd {
	return func() tea.Msg {
		return predictionDoneMsg(task.Run(ctx, p))
	}
}

func healthCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		h, err := b.CheckHealth(ctx)
		return healthMsg{health: h, err: err}
	}
}

// waitForEmailCmd listens on the inbox channel and sends a NewEmailMsg when a
// message arrives. The caller re-queues it unless the channel is closed.
func waitForEmailCmd(emailChan <-chan gmail.Message) tea.Cmd {
	return func() tea.Msg {
		email, ok := <-emailChan
		if !ok {
			return EmailMonitorStoppedMsg{}
		}
		return NewEmailMsg(email)
	}
}

// statusTickCmd creates a ticker for updating the status bar periodically.
func statusTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return StatusTickMsg{Time: t}
	})
}

func clearTempStatusCmd(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearTempStatusMsg{seq: seq}
	})
}
