package game

import "fmt"

// InvalidActionError means the acting player may not take this action:
// wrong turn, eliminated, illegal raise, or a lobby rule violation.
type InvalidActionError struct {
	Reason string
}

func (e *InvalidActionError) Error() string { return e.Reason }

func invalidActionf(format string, args ...any) error {
	return &InvalidActionError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidStateError means the action arrived in the wrong lifecycle state:
// bidding before the game started, doubting with no current bid, and so on.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

func invalidStatef(format string, args ...any) error {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}
