// Package pipeline runs user submissions against the backend: validate the
// file, then predict and render charts concurrently, then publish the outcome.
package pipeline

import "errors"

var (
	// ErrBusy is returned when a submission is already validating or submitting.
	ErrBusy = errors.New("pipeline: a submission is already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline: closed")
)

type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	PartiallyFailed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case PartiallyFailed:
		return "partially_failed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a submission.
func (s State) Terminal() bool {
	return s == Succeeded || s == PartiallyFailed || s == Failed
}

// Busy reports whether s blocks a new submission.
func (s State) Busy() bool {
	return s == Validating || s == Submitting
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
