package job

import (
	"errors"
	"fmt"

	"github.com/mastercactapus/hpglaser/hpgl"
)

var (
	ErrAlreadyStarted = errors.New("job already started")
	ErrInvalidState   = errors.New("invalid job state")
)

// TransportError is a failed send to the device.
type TransportError struct {
	Command hpgl.Command
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeviceError is an ERR reply to a command.
type DeviceError struct {
	Command hpgl.Command
	Reply   string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: device error: %s", e.Command, e.Reply)
}
