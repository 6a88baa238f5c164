// Package sim emulates the laser controller firmware over an in-memory stream.
package sim

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// StepsPerUnit converts plotter units into motor steps.
	StepsPerUnit = 10.5788

	MaxStepsX = 19050
	MaxStepsY = 19050
)

// State is the emulated controller state.
type State struct {
	X, Y    int
	Laser   bool
	Power   int
	Enabled bool
}

// Device speaks the controller line protocol. Writes are commands,
// reads return the replies.
type Device struct {
	// Delay is applied before every reply.
	Delay time.Duration

	// Hook, when set, may answer a line instead of the firmware logic.
	// Returning no lines leaves the command unanswered.
	Hook func(line string) (replies []string, handled bool)

	mx       sync.Mutex
	partial  []byte
	received []string
	state    State

	in     chan string
	pr     *io.PipeReader
	pw     *io.PipeWriter
	closed chan struct{}
	once   sync.Once
}

var _ io.ReadWriteCloser = &Device{}

// New starts a simulated controller with motors enabled at the origin.
func New() *Device {
	pr, pw := io.Pipe()
	d := &Device{
		in:     make(chan string, 1024),
		pr:     pr,
		pw:     pw,
		closed: make(chan struct{}),
		state:  State{Enabled: true},
	}
	go d.loop()
	return d
}

func (d *Device) loop() {
	for {
		select {
		case <-d.closed:
			return
		case line := <-d.in:
			var replies []string
			handled := false
			if d.Hook != nil {
				replies, handled = d.Hook(line)
			}
			if !handled {
				replies = d.process(line)
			}
			if d.Delay > 0 && len(replies) > 0 {
				select {
				case <-time.After(d.Delay):
				case <-d.closed:
					return
				}
			}
			for _, r := range replies {
				_, err := io.WriteString(d.pw, r+"\r\n")
				if err != nil {
					return
				}
			}
		}
	}
}

func (d *Device) Read(p []byte) (int, error) { return d.pr.Read(p) }

func (d *Device) Write(p []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	d.mx.Lock()
	d.partial = append(d.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(d.partial[:i]))
		d.partial = d.partial[i+1:]
	}
	d.received = append(d.received, lines...)
	d.mx.Unlock()

	for _, l := range lines {
		select {
		case d.in <- l:
		case <-d.closed:
			return 0, io.ErrClosedPipe
		}
	}
	return len(p), nil
}

func (d *Device) Close() error {
	d.once.Do(func() {
		close(d.closed)
		d.pw.Close()
	})
	return nil
}

// Received returns every line written so far.
func (d *Device) Received() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	res := make([]string, len(d.received))
	copy(res, d.received)
	return res
}

func (d *Device) State() State {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.state
}

func toSteps(units int) int {
	return int(math.Round(StepsPerUnit * float64(units)))
}

func (d *Device) process(line string) []string {
	d.mx.Lock()
	defer d.mx.Unlock()

	cmd, params, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return []string{"ERR:Invalid command format"}
	}

	switch cmd {
	case "PU":
		d.state.Laser = false
		return []string{"ACK:PU"}
	case "PD":
		d.state.Laser = true
		return []string{"ACK:PD"}
	case "PA":
		xs, ys, ok := strings.Cut(params, ",")
		if !ok {
			return []string{"ERR:Invalid PA params"}
		}
		x, _ := strconv.Atoi(strings.TrimSpace(xs))
		y, _ := strconv.Atoi(strings.TrimSpace(ys))
		sx, sy := toSteps(x), toSteps(y)
		if sx < 0 || sx > MaxStepsX || sy < 0 || sy > MaxStepsY {
			return []string{"ERR:Target position out of bounds"}
		}
		d.state.X, d.state.Y = sx, sy
		return []string{"ACK:PA"}
	case "SP":
		p, _ := strconv.Atoi(strings.TrimSpace(params))
		d.state.Power = max(0, min(255, p))
		return []string{"ACK:SP"}
	case "HOME":
		d.state.X, d.state.Y = 0, 0
		return []string{"ACK:HOME", "INFO:Current position set as (0,0)"}
	case "STATUS":
		laser := 0
		if d.state.Laser {
			laser = 1
		}
		return []string{"STATUS:" + strconv.Itoa(d.state.X) + "," + strconv.Itoa(d.state.Y) + "," +
			strconv.Itoa(laser) + "," + strconv.Itoa(d.state.Power)}
	case "RESET":
		d.state.Laser = false
		d.state.Enabled = false
		return []string{"ACK:RESET", "INFO:Emergency stop - motors disabled, laser off"}
	case "ENABLE":
		d.state.Enabled = true
		return []string{"ACK:ENABLE", "INFO:Motors enabled"}
	}
	return []string{"ERR:Unknown command"}
}
