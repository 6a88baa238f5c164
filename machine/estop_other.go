//go:build !linux

package machine

import (
	"errors"
	"io"
)

func (m *Machine) WatchEStop(chip string, offset int) (io.Closer, error) {
	return nil, errors.New("gpio e-stop is only supported on linux")
}
