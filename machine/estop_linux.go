//go:build linux

package machine

import (
	"io"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// WatchEStop calls EmergencyStop whenever the input line on chip is
// pulled low. Close the result to release the line.
func (m *Machine) WatchEStop(chip string, offset int) (io.Closer, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(10*time.Millisecond),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			m.log.Warn().Str("chip", chip).Int("line", offset).Msg("e-stop pressed")
			err := m.EmergencyStop()
			if err != nil {
				m.log.Error().Err(err).Msg("e-stop")
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}
