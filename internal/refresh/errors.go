package refresh

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotApplicable marks entities whose kind the coordinator does not handle.
	ErrNotApplicable = errors.New("entity not supported")
	// ErrCancelled marks refreshes aborted by the caller's context.
	ErrCancelled = errors.New("refresh cancelled")
	// ErrParseFailure marks descriptors the parser could not interpret or read.
	ErrParseFailure = errors.New("descriptor parse failure")
)

// wrap tags err with marker and an operation detail, keeping both in the
// error chain for errors.Is.
func wrap(marker error, operation string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
	return fmt.Errorf("%w: %s", marker, operation)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
