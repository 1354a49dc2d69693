package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for scheduling failures. Structured errors below match them via errors.Is.
var (
	ErrEmptyRoster      = errors.New("empty roster")
	ErrInfeasibleRoster = errors.New("infeasible roster")
	ErrInfeasibleInning = errors.New("infeasible inning")
	ErrCancelled        = errors.New("optimization cancelled")
)

// EmptyRosterError reports a roster with no players.
type EmptyRosterError struct{}

func (EmptyRosterError) Error() string        { return "empty roster: at least one player is required" }
func (EmptyRosterError) Is(target error) bool { return target == ErrEmptyRoster }

// InfeasibleRosterError reports positions nobody on the roster can play.
type InfeasibleRosterError struct {
	Position  Position   // first offending position in canonical order
	Positions []Position // every offending position
}

func (e *InfeasibleRosterError) Error() string {
	if len(e.Positions) > 1 {
		labels := make([]string, len(e.Positions))
		for i, p := range e.Positions {
			labels[i] = string(p)
		}
		return fmt.Sprintf("infeasible roster: no eligible player for %s", strings.Join(labels, ", "))
	}
	return fmt.Sprintf("infeasible roster: no eligible player for %s", e.Position)
}

func (e *InfeasibleRosterError) Is(target error) bool { return target == ErrInfeasibleRoster }

// InfeasibleInningError reports an inning whose positions cannot all be filled.
type InfeasibleInningError struct {
	Inning    int
	Positions []Position // contested positions: fewer available players than the inning needs there
}

func (e *InfeasibleInningError) Error() string {
	if len(e.Positions) == 0 {
		return fmt.Sprintf("infeasible inning %d", e.Inning)
	}
	labels := make([]string, len(e.Positions))
	for i, p := range e.Positions {
		labels[i] = string(p)
	}
	return fmt.Sprintf("infeasible inning %d: cannot fill %s", e.Inning, strings.Join(labels, ", "))
}

func (e *InfeasibleInningError) Is(target error) bool { return target == ErrInfeasibleInning }

// CancelledError reports a run stopped before any feasible schedule existed.
type CancelledError struct {
	Cause error // ctx.Err()
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return ErrCancelled.Error()
	}
	return fmt.Sprintf("%s: %v", ErrCancelled, e.Cause)
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

func (e *CancelledError) Unwrap() error { return e.Cause }
