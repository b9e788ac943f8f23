package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for service errors.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSessionCompleted  = errors.New("session already submitted")
	ErrIncompleteSession = errors.New("session has unscored items")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrNotStarted        = errors.New("service not started")
)

// IncompleteError lists the active items still missing a score.
type IncompleteError struct {
	EvaluatorID string
	CandidateID string
	Missing     []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("session %s/%s: %s: %s", e.EvaluatorID, e.CandidateID, ErrIncompleteSession, strings.Join(e.Missing, ","))
}

// Is makes errors.Is(err, ErrIncompleteSession) hold.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncompleteSession
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
