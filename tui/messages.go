package tui

import (
	"time"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

// A message carrying the result of a classification request.
type predictionDoneMsg scanner.Outcome

// A message carrying the result of a health probe.
type healthMsg struct {
	health *api.HealthResponse
	err    error
}

// A message to indicate a new inbox message has arrived.
type NewEmailMsg gmail.Message

// A message for timed status updates.
type StatusTickMsg struct{ Time time.Time }

// Message to signal that the inbox channel is closed and monitoring has stopped
type EmailMonitorStoppedMsg struct{}

// Message to clear a temporary status message after a timeout. Only the
// message whose seq matches the latest temporary status clears it.
type clearTempStatusMsg struct{ seq int }
