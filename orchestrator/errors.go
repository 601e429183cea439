package orchestrator

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery rejects queries that are empty after trimming.
var ErrEmptyQuery = errors.New("query cannot be empty")

// TurnError is the typed error surfaced when a turn reaches the Failed
// state. The internal cause never reaches the end user; callers show
// UserMessage instead.
type TurnError struct {
	State State
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed at %s: %v", e.State, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// UserMessage returns the retry-safe text shown to the end user.
func (e *TurnError) UserMessage() string {
	if errors.Is(e.Err, ErrEmptyQuery) {
		return "I didn't receive a valid query. How can I help you with your skincare needs?"
	}
	return "I encountered an error processing your request. Please try again or rephrase your question."
}

func failed(state State, err error) *TurnError {
	return &TurnError{State: state, Err: err}
}
