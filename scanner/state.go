// Package scanner holds the interaction state behind the Veil screens and the
// transitions the user can trigger: submit, clear and loading canned or
// inbox text. Transitions are pure functions on State values; the predict
// call itself is described by a Task whose Outcome is fed back through
// Resolve, so every renderer can run it on whatever concurrency primitive it
// likes.
package scanner

import (
	"context"
	"errors"
	"strings"

	"github.com/bassamadnan/veil/api"
)

const (
	// EmptyInputMessage is shown when Submit is attempted with blank input.
	EmptyInputMessage = "Please enter some email text to analyze"
	// FallbackErrorMessage is shown when a failure carries no message at all.
	FallbackErrorMessage = "Failed to analyze email. Please try again."
)

// ErrEmptyInput is the validation failure for blank input.
var ErrEmptyInput = errors.New(EmptyInputMessage)

// Predictor is the part of the API client the state machine depends on.
type Predictor interface {
	Predict(ctx context.Context, emailText string) (*api.PredictionResponse, error)
}

// Phase is the at-a-glance position of a State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSettled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// State is the interaction state of one scanner screen.
type State struct {
	InputText string
	IsLoading bool
	Result    *api.PredictionResponse
	Error     string

	// ticket identifies the in-flight task; outcomes for older tickets are dropped.
	ticket uint64
}

// New returns the empty state a screen starts with.
func New() State {
	return State{}
}

// Phase derives the current phase from the state fields.
func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseSubmitting
	case s.Result != nil:
		return PhaseSettled
	case s.Error != "":
		return PhaseFailed
	}
	return PhaseIdle
}

// SetInput records an edit of the input text.
func (s State) SetInput(text string) State {
	s.InputText = text
	return s
}

// Task is a single pending predict call created by Submit.
type Task struct {
	Ticket uint64
	Text   string
}

// Outcome is the result of running a Task: exactly one of Response or Err is set.
type Outcome struct {
	Ticket   uint64
	Response *api.PredictionResponse
	Err      error
}

// Run performs the predict call for t.
func (t Task) Run(ctx context.Context, p Predictor) Outcome {
	resp, err := p.Predict(ctx, t.Text)
	if err == nil && resp == nil {
		err = errors.New(FallbackErrorMessage)
	}
	return Outcome{Ticket: t.Ticket, Response: resp, Err: err}
}

// Submit moves the state into Submitting and returns the task to run. Blank
// input fails immediately with EmptyInputMessage and returns no task. A
// submit while another is in flight is ignored.
func (s State) Submit() (State, *Task) {
	if s.IsLoading {
		return s, nil
	}
	if strings.TrimSpace(s.InputText) == "" {
		s.Result = nil
		s.Error = EmptyInputMessage
		return s, nil
	}
	s.Result = nil
	s.Error = ""
	s.IsLoading = true
	s.ticket++
	return s, &Task{Ticket: s.ticket, Text: s.InputText}
}

// Resolve applies the outcome of the in-flight task. Outcomes that do not
// belong to it leave the state untouched.
func (s State) Resolve(o Outcome) State {
	if !s.IsLoading || o.Ticket != s.ticket {
		return s
	}
	s.IsLoading = false
	if o.Err != nil {
		s.Result = nil
		s.Error = ErrorMessage(o.Err)
		return s
	}
	s.Result = o.Response
	s.Error = ""
	return s
}

// Clear returns to Idle with empty input. Any in-flight outcome is discarded.
func (s State) Clear() State {
	return State{ticket: s.ticket}
}

// LoadExample replaces the input with the canned text for kind.
func (s State) LoadExample(kind ExampleKind) (State, error) {
	text, err := ExampleText(kind)
	if err != nil {
		return s, err
	}
	return s.LoadText(text), nil
}

// LoadText replaces the input with text and clears the displayed artifact.
// The loading flag is left as is and nothing is submitted.
func (s State) LoadText(text string) State {
	s.InputText = text
	s.Result = nil
	s.Error = ""
	return s
}

// ErrorMessage turns any failure into the single string shown to the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackErrorMessage
}
