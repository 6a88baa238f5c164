package device

import (
	"context"
	"time"
)

// A Session is a line oriented request/reply channel to the controller.
//
// Only one caller may drive a Session at a time; a running job owns it
// until it finishes. Implementations do not enforce this.
type Session interface {
	// SendLine writes line, adding the terminator when missing.
	SendLine(line string) error

	// AwaitLine waits up to timeout for the next reply line, trimmed.
	// It reports false on timeout, on ctx cancellation or when the
	// session is closed.
	AwaitLine(ctx context.Context, timeout time.Duration) (string, bool)
}
