package scanner

import (
	"context"

	"go.uber.org/zap"
)

// Session drives a State synchronously. The CLI uses it; the interactive
// screens run tasks asynchronously against State directly.
type Session struct {
	predictor Predictor
	logger    *zap.Logger
	state     State
}

func NewSession(p Predictor, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{predictor: p, logger: logger, state: New()}
}

func (s *Session) State() State { return s.state }

func (s *Session) SetInput(text string) { s.state = s.state.SetInput(text) }

func (s *Session) Clear() { s.state = s.state.Clear() }

func (s *Session) LoadText(text string) { s.state = s.state.LoadText(text) }

func (s *Session) LoadExample(kind ExampleKind) error {
	next, err := s.state.LoadExample(kind)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Submit runs the submit transition and, when it yields a task, performs the
// predict call before returning the settled state.
func (s *Session) Submit(ctx context.Context) State {
	next, task := s.state.Submit()
	s.state = next
	if task == nil {
		s.logger.Debug("submit produced no request", zap.String("phase", next.Phase().String()))
		return s.state
	}
	outcome := task.Run(ctx, s.predictor)
	if outcome.Err != nil {
		s.logger.Info("prediction failed", zap.Error(outcome.Err))
	}
	s.state = s.state.Resolve(outcome)
	return s.state
}
