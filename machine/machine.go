// Package machine ties a loaded drawing, a device session and the
// running job together.
package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mastercactapus/hpglaser/device"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/mastercactapus/hpglaser/job"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

var (
	// ErrBusy is returned while a job or manual action owns the session.
	ErrBusy = errors.New("machine busy")

	ErrNoJob      = errors.New("no job running")
	ErrNoCommands = errors.New("no commands loaded")
	ErrNoReply    = errors.New("no reply from device")
	ErrDevice     = errors.New("device error")
)

type Options struct {
	// Timeout per command; job.DefaultTimeout when zero.
	Timeout      time.Duration
	PollInterval time.Duration

	// InitialPower is sent before every job when >= 0.
	InitialPower int

	// ParkOnFinish returns the head to 0,0 after each job.
	ParkOnFinish bool

	Parse  hpgl.ParseOptions
	Logger zerolog.Logger
}

// DefaultOptions disables the initial power command.
func DefaultOptions() Options {
	return Options{
		Timeout:      job.DefaultTimeout,
		PollInterval: job.DefaultPollInterval,
		InitialPower: -1,
		Logger:       zerolog.Nop(),
	}
}

// Machine serializes access to one device session: either a single job
// or a single manual action holds it at any time.
type Machine struct {
	session device.Session
	doc     *hpgl.Document
	opt     Options
	log     zerolog.Logger

	// held for the whole life of a job, or for one manual action
	busy sync.Mutex

	mx  sync.Mutex
	job *job.Job

	subs    *xsync.MapOf[uint64, chan job.Event]
	lastSub atomic.Uint64
	history *xsync.MapOf[string, job.Info]
}

func New(s device.Session, opt Options) *Machine {
	if opt.Timeout == 0 {
		opt.Timeout = job.DefaultTimeout
	}
	if opt.PollInterval == 0 {
		opt.PollInterval = job.DefaultPollInterval
	}
	return &Machine{
		session: s,
		doc:     hpgl.NewDocument(opt.Parse),
		opt:     opt,
		log:     opt.Logger,
		subs:    xsync.NewMapOf[uint64, chan job.Event](),
		history: xsync.NewMapOf[string, job.Info](),
	}
}

// Document is the drawing the next job will run.
func (m *Machine) Document() *hpgl.Document { return m.doc }

// Load replaces the drawing; on a parse error the old one is kept.
func (m *Machine) Load(r io.Reader) (*hpgl.Result, error) {
	res, err := m.doc.Load(r)
	if err != nil {
		m.log.Warn().Err(err).Msg("load failed")
		return nil, err
	}
	m.log.Info().Int("commands", len(res.Commands)).Msg("drawing loaded")
	return res, nil
}

// Replace swaps in an already parsed drawing.
func (m *Machine) Replace(res *hpgl.Result) {
	m.doc.Replace(res)
	m.log.Info().Int("commands", len(m.doc.Result().Commands)).Msg("drawing loaded")
}

// Wait blocks until no job or manual action holds the session, including
// the park step that follows a job.
func (m *Machine) Wait() {
	m.busy.Lock()
	m.busy.Unlock()
}

// Job returns the current or last job, if any.
func (m *Machine) Job() *job.Job {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.job
}

// Jobs returns the info of every job started by m.
func (m *Machine) Jobs() []job.Info {
	var res []job.Info
	m.history.Range(func(_ string, info job.Info) bool {
		res = append(res, info)
		return true
	})
	return res
}

func (m *Machine) JobInfo(id string) (job.Info, bool) {
	return m.history.Load(id)
}

// Start runs the loaded drawing. ctx bounds the whole job, not just the call.
func (m *Machine) Start(ctx context.Context) (*job.Job, error) {
	cmds := m.doc.Result().Commands
	if len(cmds) == 0 {
		return nil, ErrNoCommands
	}
	if !m.busy.TryLock() {
		return nil, ErrBusy
	}

	m.drain()
	j := job.New(cmds,
		job.WithTimeout(m.opt.Timeout),
		job.WithPollInterval(m.opt.PollInterval),
		job.WithInitialPower(m.opt.InitialPower),
		job.WithLogger(m.log),
	)
	m.mx.Lock()
	m.job = j
	m.mx.Unlock()
	m.history.Store(j.ID(), j.Info())

	err := j.Start(ctx, m.session)
	if err != nil {
		m.busy.Unlock()
		return nil, err
	}
	go m.forward(ctx, j)
	return j, nil
}

func (m *Machine) forward(ctx context.Context, j *job.Job) {
	defer m.busy.Unlock()
	for e := range j.Events() {
		m.history.Store(j.ID(), j.Info())
		m.publish(e)
	}
	m.history.Store(j.ID(), j.Info())
	if m.opt.ParkOnFinish {
		err := m.park(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("park after job")
		}
	}
}

// active accepts a job that has not reached Running yet; job.Pause holds
// such a job before its first command.
func (m *Machine) active() (*job.Job, error) {
	j := m.Job()
	if j == nil || !(j.State().Active() || j.State() == job.StateIdle) {
		return nil, ErrNoJob
	}
	return j, nil
}

func (m *Machine) Pause() error {
	j, err := m.active()
	if err != nil {
		return err
	}
	return j.Pause()
}

func (m *Machine) Resume() error {
	j, err := m.active()
	if err != nil {
		return err
	}
	return j.Resume()
}

func (m *Machine) Stop() error {
	j, err := m.active()
	if err != nil {
		return err
	}
	j.Stop()
	return nil
}

// Subscribe receives events of every job started from now on.
// Slow subscribers miss events rather than block the job.
func (m *Machine) Subscribe() (<-chan job.Event, func()) {
	id := m.lastSub.Add(1)
	ch := make(chan job.Event, 64)
	m.subs.Store(id, ch)
	return ch, func() { m.subs.Delete(id) }
}

func (m *Machine) publish(e job.Event) {
	m.subs.Range(func(_ uint64, ch chan job.Event) bool {
		select {
		case ch <- e:
		default:
		}
		return true
	})
}

// exchange sends line and waits for its reply. The caller holds busy.
func (m *Machine) exchange(ctx context.Context, line string) (string, error) {
	err := m.session.SendLine(line)
	if err != nil {
		return "", err
	}
	reply, ok := m.session.AwaitLine(ctx, m.opt.Timeout)
	if !ok {
		return "", fmt.Errorf("%s: %w", line, ErrNoReply)
	}
	if device.IsError(reply) {
		return reply, fmt.Errorf("%s: %w: %s", line, ErrDevice, reply)
	}
	return reply, nil
}

// drain discards replies nobody waited for, such as the answer to RESET:.
func (m *Machine) drain() {
	d, ok := m.session.(interface{ Drain() int })
	if !ok {
		return
	}
	if n := d.Drain(); n > 0 {
		m.log.Debug().Int("lines", n).Msg("discarded stale replies")
	}
}

func (m *Machine) manual(fn func() error) error {
	if !m.busy.TryLock() {
		return ErrBusy
	}
	defer m.busy.Unlock()
	m.drain()
	return fn()
}

// TestFire pulses the laser at power for d. The laser is switched off
// again even when ctx is cancelled.
func (m *Machine) TestFire(ctx context.Context, power int, d time.Duration) error {
	return m.manual(func() error {
		m.log.Info().Int("power", power).Dur("duration", d).Msg("test fire")
		_, err := m.exchange(ctx, hpgl.SetPower(power).String())
		if err != nil {
			return err
		}
		_, err = m.exchange(ctx, hpgl.PenDown().String())
		if err == nil {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
		_, offErr := m.exchange(context.WithoutCancel(ctx), hpgl.PenUp().String())
		return errors.Join(err, offErr)
	})
}

func (m *Machine) park(ctx context.Context) error {
	_, err := m.exchange(ctx, hpgl.PenUp().String())
	if err != nil {
		return err
	}
	_, err = m.exchange(ctx, hpgl.MoveTo(0, 0).String())
	return err
}

// Park switches the laser off and returns to the origin.
func (m *Machine) Park(ctx context.Context) error {
	return m.manual(func() error { return m.park(ctx) })
}

// QueryStatus asks the controller for its position and laser state.
func (m *Machine) QueryStatus(ctx context.Context) (*device.Status, error) {
	var st *device.Status
	err := m.manual(func() error {
		reply, err := m.exchange(ctx, "STATUS:")
		if err != nil {
			return err
		}
		st, err = device.ParseStatus(reply)
		return err
	})
	return st, err
}

// Enable re-enables the motors after an emergency stop.
func (m *Machine) Enable(ctx context.Context) error {
	return m.manual(func() error {
		_, err := m.exchange(ctx, "ENABLE:")
		return err
	})
}

// EmergencyStop stops the job and tells the controller to cut the laser
// and release the motors. RESET: goes out immediately, even while a
// command is in flight, and its reply is not awaited.
func (m *Machine) EmergencyStop() error {
	if j := m.Job(); j != nil {
		j.Stop()
	}
	m.log.Warn().Msg("emergency stop")
	return m.session.SendLine("RESET:")
}
