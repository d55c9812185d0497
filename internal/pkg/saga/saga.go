// Package saga runs compensating actions for multi-step workflows that have no
// enclosing transaction.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// CompensateFn undoes one completed step
type CompensateFn func(ctx context.Context) error

type step struct {
	name       string
	compensate CompensateFn
}

// Saga records a compensation for every completed step and replays them newest first
type Saga struct {
	name  string
	log   zerolog.Logger
	steps []step
}

// New creates an empty saga. The name is attached to every log entry.
func New(name string, log zerolog.Logger) *Saga {
	return &Saga{name: name, log: log}
}

// Completed registers the compensation for a step that has just succeeded
func (s *Saga) Completed(name string, compensate CompensateFn) {
	s.steps = append(s.steps, step{name: name, compensate: compensate})
}

// Steps returns the names of the completed steps in order
func (s *Saga) Steps() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.name
	}
	return names
}

// Compensate runs every registered compensation in reverse order. All of them run even
// when one fails; the failures are joined. The saga is empty afterwards.
func (s *Saga) Compensate(ctx context.Context) error {
	// Compensations must finish even when the request that triggered them was cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.compensate(ctx); err != nil {
			s.log.Error().Err(err).Str("saga", s.name).Str("step", st.name).Msg("Compensation failed")
			errs = errors.Join(errs, fmt.Errorf("compensate %s: %w", st.name, err))
			continue
		}
		s.log.Warn().Str("saga", s.name).Str("step", st.name).Msg("Step compensated")
	}
	s.steps = nil
	return errs
}
