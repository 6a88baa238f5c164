// Package job runs a command sequence against a device session, one
// command at a time, with pause, resume and stop.
package job

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mastercactapus/hpglaser/device"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout is how long each command waits for its reply.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval bounds how long a paused job sleeps between checks.
	DefaultPollInterval = 100 * time.Millisecond

	defaultEventBuffer = 256
)

// Job is a single run of a command sequence.
//
// A Job owns the session for as long as it runs; callers must not send
// anything else to the session until Done is closed.
type Job struct {
	id           string
	cmds         []hpgl.Command
	timeout      time.Duration
	poll         time.Duration
	initialPower int
	log          zerolog.Logger

	state     atomic.Int32
	progress  atomic.Int32
	completed atomic.Int32
	stopped   atomic.Bool
	started   atomic.Bool
	wake      chan struct{}

	evMx     sync.Mutex
	evClosed bool
	events   chan Event
	done     chan struct{}
}

type Option func(*Job)

func WithTimeout(d time.Duration) Option { return func(j *Job) { j.timeout = d } }

func WithPollInterval(d time.Duration) Option { return func(j *Job) { j.poll = d } }

func WithLogger(l zerolog.Logger) Option { return func(j *Job) { j.log = l } }

func WithID(id string) Option { return func(j *Job) { j.id = id } }

// WithInitialPower sends SetPower(power) before the first command.
// It does not count towards progress.
func WithInitialPower(power int) Option { return func(j *Job) { j.initialPower = power } }

// WithEventBuffer sets the event channel capacity. When the buffer is
// full the oldest undelivered event is dropped.
func WithEventBuffer(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.events = make(chan Event, n)
		}
	}
}

// New creates an idle job for cmds.
func New(cmds []hpgl.Command, opts ...Option) *Job {
	j := &Job{
		cmds:         cmds,
		timeout:      DefaultTimeout,
		poll:         DefaultPollInterval,
		initialPower: -1,
		log:          zerolog.Nop(),
		wake:         make(chan struct{}, 1),
		events:       make(chan Event, defaultEventBuffer),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(j)
	}
	if j.id == "" {
		j.id = uuid.NewString()
	}
	j.log = j.log.With().Str("job", j.id).Logger()
	return j
}

func (j *Job) ID() string     { return j.id }
func (j *Job) Len() int       { return len(j.cmds) }
func (j *Job) State() State   { return State(j.state.Load()) }
func (j *Job) Progress() int  { return int(j.progress.Load()) }
func (j *Job) Completed() int { return int(j.completed.Load()) }

// Events delivers progress and status. It is closed after Finished.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed once the job reached StateFinished.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) Wait() { <-j.done }

// Info is a point-in-time view of a job.
type Info struct {
	ID        string `json:"id"`
	State     State  `json:"state"`
	Progress  int    `json:"progress"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

func (j *Job) Info() Info {
	return Info{
		ID:        j.id,
		State:     j.State(),
		Progress:  j.Progress(),
		Completed: j.Completed(),
		Total:     len(j.cmds),
	}
}

func (j *Job) emit(e Event) {
	j.evMx.Lock()
	defer j.evMx.Unlock()
	if j.evClosed {
		return
	}
	for {
		select {
		case j.events <- e:
			return
		default:
		}
		// full: drop the oldest
		select {
		case <-j.events:
		default:
		}
	}
}

func (j *Job) status(msg string, err error) {
	if err != nil {
		j.log.Warn().Err(err).Msg(msg)
	} else {
		j.log.Debug().Msg(msg)
	}
	j.emit(Status{JobID: j.id, Message: msg, Err: err})
}

func (j *Job) transition(from, to State) bool {
	if !j.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	j.log.Info().Stringer("from", from).Stringer("to", to).Msg("job state")
	j.emit(StateChange{JobID: j.id, State: to})
	return true
}

func (j *Job) signal() {
	select {
	case j.wake <- struct{}{}:
	default:
	}
}

// Pause holds dispatch before the next command. The command in flight,
// if any, still completes its round trip. A job paused before it runs
// holds before its first command.
func (j *Job) Pause() error {
	if !j.transition(StateRunning, StatePaused) && !j.transition(StateIdle, StatePaused) {
		return fmt.Errorf("pause %s job: %w", j.State(), ErrInvalidState)
	}
	return nil
}

func (j *Job) Resume() error {
	if !j.transition(StatePaused, StateRunning) {
		return fmt.Errorf("resume %s job: %w", j.State(), ErrInvalidState)
	}
	j.signal()
	return nil
}

// Stop abandons the remaining commands. The job still sends the
// shutdown pen-up and then finishes. Stopping a finished job is a no-op.
func (j *Job) Stop() {
	for {
		s := j.State()
		if s == StateStopped || s == StateFinished {
			return
		}
		if j.transition(s, StateStopped) {
			j.stopped.Store(true)
			j.signal()
			return
		}
	}
}

// checkpoint blocks while paused and reports whether the next command may be sent.
func (j *Job) checkpoint(ctx context.Context) bool {
	var t *time.Ticker
	for {
		if ctx.Err() != nil {
			j.Stop()
		}
		switch j.State() {
		case StateRunning:
			return true
		case StatePaused:
		default:
			return false
		}

		if t == nil {
			t = time.NewTicker(j.poll)
			defer t.Stop()
		}
		select {
		case <-j.wake:
		case <-t.C:
		case <-ctx.Done():
		}
	}
}

func describe(c hpgl.Command) string {
	switch c.Kind {
	case hpgl.KindHome:
		return "Homing machine..."
	case hpgl.KindPenUp:
		return "Laser OFF"
	case hpgl.KindPenDown:
		return "Laser ON"
	case hpgl.KindMoveTo:
		return fmt.Sprintf("Moving to (%d, %d)", c.Pos.X, c.Pos.Y)
	case hpgl.KindSetPower:
		return fmt.Sprintf("Setting laser power to %d", c.Power)
	}
	return c.String()
}

// roundTrip sends c and waits for its reply. Failures are reported as
// status events and never end the job.
func (j *Job) roundTrip(ctx context.Context, s device.Session, c hpgl.Command) {
	err := s.SendLine(c.String())
	if err != nil {
		err = &TransportError{Command: c, Err: err}
		j.status("Error: "+err.Error(), err)
		return
	}
	j.status(describe(c), nil)

	reply, ok := s.AwaitLine(ctx, j.timeout)
	if !ok {
		j.log.Debug().Stringer("cmd", c).Msg("no reply")
		return
	}
	if device.IsError(reply) {
		err = &DeviceError{Command: c, Reply: reply}
		j.status("Error: "+reply, err)
	}
}

func percent(done, total int) int {
	if total == 0 || done >= total {
		return 100
	}
	return min(99, int(math.Round(float64(done)/float64(total)*100)))
}

func (j *Job) setProgress(done int) {
	j.completed.Store(int32(done))
	p := percent(done, len(j.cmds))
	j.progress.Store(int32(p))
	j.emit(Progress{JobID: j.id, Percent: p})
}

// safely runs fn, turning a panic into a status event.
func (j *Job) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: %v", what, r)
			j.status("Error: "+err.Error(), err)
		}
	}()
	fn()
}

func (j *Job) loop(ctx context.Context, s device.Session) {
	if j.initialPower >= 0 && j.checkpoint(ctx) {
		j.roundTrip(ctx, s, hpgl.SetPower(j.initialPower))
	}
	for i, c := range j.cmds {
		if !j.checkpoint(ctx) {
			return
		}
		j.roundTrip(ctx, s, c)
		j.setProgress(i + 1)
	}
	if len(j.cmds) == 0 {
		j.setProgress(0)
	}
}

// Run executes the job on the calling goroutine and returns once it
// has finished. Device and transport failures are reported as Status
// events; the only error is ErrAlreadyStarted.
//
// Whatever happens, a pen-up is sent after the last dispatched command.
func (j *Job) Run(ctx context.Context, s device.Session) error {
	if !j.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	j.run(ctx, s)
	return nil
}

// Start runs the job on a new goroutine.
func (j *Job) Start(ctx context.Context, s device.Session) error {
	if !j.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go j.run(ctx, s)
	return nil
}

func (j *Job) run(ctx context.Context, s device.Session) {
	defer close(j.done)

	j.transition(StateIdle, StateRunning)
	j.log.Info().Int("commands", len(j.cmds)).Msg("job started")

	j.safely("run", func() { j.loop(ctx, s) })
	j.safely("shutdown", func() { j.roundTrip(ctx, s, hpgl.PenUp()) })

	stopped := j.stopped.Load()
	j.state.Store(int32(StateFinished))
	j.emit(StateChange{JobID: j.id, State: StateFinished})
	if stopped {
		j.status("Job stopped", nil)
	} else {
		j.status("Job completed", nil)
	}
	j.log.Info().Bool("stopped", stopped).Int("completed", j.Completed()).Msg("job finished")
	j.emit(Finished{JobID: j.id, Stopped: stopped})

	j.evMx.Lock()
	j.evClosed = true
	close(j.events)
	j.evMx.Unlock()
}
