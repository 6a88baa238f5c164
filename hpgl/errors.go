package hpgl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNumber is wrapped by a ParseError when a parameter is not an integer.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrNothingToCenter is returned by Center when no point was ever plotted.
	ErrNothingToCenter = errors.New("no coordinates to center")

	// ErrCannotScale is returned by Fit when the drawing has no extent on an axis.
	ErrCannotScale = errors.New("drawing has no extent to scale")
)

// ParseError reports the statement that stopped a parse.
type ParseError struct {
	Index     int
	Statement string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hpgl: statement %d (%q): %v", e.Index, e.Statement, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func invalidNumber(s string) error {
	return fmt.Errorf("%w %q", ErrInvalidNumber, s)
}
