package machine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mastercactapus/hpglaser/device"
	"github.com/mastercactapus/hpglaser/device/sim"
	"github.com/mastercactapus/hpglaser/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, opt Options) (*Machine, *sim.Device) {
	t.Helper()
	dev := sim.New()
	conn := device.NewConn(dev)
	t.Cleanup(func() { conn.Close() })
	if opt.Timeout == 0 {
		opt.Timeout = time.Second
	}
	if opt.PollInterval == 0 {
		opt.PollInterval = 5 * time.Millisecond
	}
	return New(conn, opt), dev
}

func idle(t *testing.T, m *Machine) {
	t.Helper()
	require.Eventually(t, func() bool {
		if !m.busy.TryLock() {
			return false
		}
		m.busy.Unlock()
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestMachine_Start(t *testing.T) {
	m, dev := newTestMachine(t, Options{InitialPower: -1})

	_, err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoCommands)

	_, err = m.Load(strings.NewReader("SP8;PU;PA10,20;PD;PA30,40;"))
	require.NoError(t, err)

	events, cancel := m.Subscribe()
	defer cancel()

	j, err := m.Start(context.Background())
	require.NoError(t, err)
	j.Wait()
	idle(t, m)

	assert.Equal(t, []string{"SP:255", "PU:", "PA:10,20", "PD:", "PA:30,40", "PU:"}, dev.Received())

	var last job.Event
	timeout := time.After(time.Second)
	for {
		select {
		case e := <-events:
			last = e
		case <-timeout:
			t.Fatal("no finished event")
		}
		if _, ok := last.(job.Finished); ok {
			break
		}
	}
	assert.Equal(t, j.ID(), last.Job())

	info, ok := m.JobInfo(j.ID())
	require.True(t, ok)
	assert.Equal(t, job.StateFinished, info.State)
	assert.Equal(t, 100, info.Progress)
	assert.Len(t, m.Jobs(), 1)
}

func TestMachine_Busy(t *testing.T) {
	m, dev := newTestMachine(t, Options{InitialPower: -1})
	dev.Delay = 20 * time.Millisecond

	_, err := m.Load(strings.NewReader("PU;PA1,1;PA2,2;PA3,3;PA4,4;PA5,5;"))
	require.NoError(t, err)

	j, err := m.Start(context.Background())
	require.NoError(t, err)

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, m.TestFire(context.Background(), 10, time.Millisecond), ErrBusy)
	assert.ErrorIs(t, m.Park(context.Background()), ErrBusy)
	_, err = m.QueryStatus(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	require.Eventually(t, func() bool { return j.State() == job.StateRunning }, time.Second, time.Millisecond)
	require.NoError(t, m.Pause())
	assert.Equal(t, job.StatePaused, j.State())
	require.NoError(t, m.Resume())
	require.NoError(t, m.Stop())
	j.Wait()
	idle(t, m)

	assert.ErrorIs(t, m.Stop(), ErrNoJob)
	assert.ErrorIs(t, m.Pause(), ErrNoJob)
	assert.Less(t, len(dev.Received()), 7)
}

func TestMachine_NoJob(t *testing.T) {
	m, _ := newTestMachine(t, DefaultOptions())
	assert.ErrorIs(t, m.Pause(), ErrNoJob)
	assert.ErrorIs(t, m.Resume(), ErrNoJob)
	assert.ErrorIs(t, m.Stop(), ErrNoJob)
	assert.Nil(t, m.Job())
}

func TestMachine_LoadError(t *testing.T) {
	m, _ := newTestMachine(t, DefaultOptions())
	_, err := m.Load(strings.NewReader("PA1,2;"))
	require.NoError(t, err)

	_, err = m.Load(strings.NewReader("PAx,2;"))
	assert.Error(t, err)
	assert.Len(t, m.Document().Result().Commands, 1)
}

func TestMachine_TestFire(t *testing.T) {
	m, dev := newTestMachine(t, DefaultOptions())

	err := m.TestFire(context.Background(), 128, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{"SP:128", "PD:", "PU:"}, dev.Received())
	assert.False(t, dev.State().Laser)
	assert.Equal(t, 128, dev.State().Power)
}

func TestMachine_TestFireCancel(t *testing.T) {
	m, dev := newTestMachine(t, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	start := time.Now()
	err := m.TestFire(ctx, 50, time.Hour)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, []string{"SP:50", "PD:", "PU:"}, dev.Received())
	assert.False(t, dev.State().Laser)
}

func TestMachine_ParkAndStatus(t *testing.T) {
	m, dev := newTestMachine(t, DefaultOptions())

	_, err := m.Load(strings.NewReader("PU;PA100,100;"))
	require.NoError(t, err)
	j, err := m.Start(context.Background())
	require.NoError(t, err)
	j.Wait()
	idle(t, m)

	st, err := m.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1058, st.Pos.X)
	assert.False(t, st.Laser)

	require.NoError(t, m.Park(context.Background()))
	assert.Equal(t, 0, dev.State().X)
	assert.Equal(t, 0, dev.State().Y)
}

func TestMachine_ParkOnFinish(t *testing.T) {
	m, dev := newTestMachine(t, Options{InitialPower: -1, ParkOnFinish: true})

	_, err := m.Load(strings.NewReader("PU;PA100,100;"))
	require.NoError(t, err)
	j, err := m.Start(context.Background())
	require.NoError(t, err)
	j.Wait()
	idle(t, m)

	assert.Equal(t, []string{"PU:", "PA:100,100", "PU:", "PU:", "PA:0,0"}, dev.Received())
	assert.Equal(t, 0, dev.State().X)
}

func TestMachine_DeviceError(t *testing.T) {
	m, _ := newTestMachine(t, DefaultOptions())
	m.opt.Timeout = 50 * time.Millisecond

	err := m.manual(func() error {
		_, err := m.exchange(context.Background(), "BOGUS:")
		return err
	})
	assert.ErrorIs(t, err, ErrDevice)
}

func TestMachine_EmergencyStop(t *testing.T) {
	m, dev := newTestMachine(t, DefaultOptions())
	dev.Delay = 10 * time.Millisecond

	_, err := m.Load(strings.NewReader("PU;PA1,1;PD;PA2,2;PA3,3;PA4,4;PA5,5;PA6,6;"))
	require.NoError(t, err)
	j, err := m.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.EmergencyStop())
	j.Wait()
	idle(t, m)

	assert.Contains(t, dev.Received(), "RESET:")
	require.Eventually(t, func() bool { return !dev.State().Enabled }, time.Second, 5*time.Millisecond)
	assert.False(t, dev.State().Laser)

	require.Eventually(t, func() bool {
		return m.Enable(context.Background()) == nil && dev.State().Enabled
	}, time.Second, 10*time.Millisecond)
}

func TestMachine_WaitCoversPark(t *testing.T) {
	m, dev := newTestMachine(t, Options{InitialPower: -1, ParkOnFinish: true})
	dev.Delay = 5 * time.Millisecond

	_, err := m.Load(strings.NewReader("PU;PA100,100;"))
	require.NoError(t, err)
	j, err := m.Start(context.Background())
	require.NoError(t, err)
	j.Wait()
	m.Wait()

	assert.Equal(t, []string{"PU:", "PA:100,100", "PU:", "PU:", "PA:0,0"}, dev.Received())
	assert.Equal(t, 0, dev.State().X)
}

func TestMachine_PauseBeforeRunning(t *testing.T) {
	m, dev := newTestMachine(t, DefaultOptions())
	dev.Delay = 20 * time.Millisecond

	_, err := m.Load(strings.NewReader("PU;PA1,1;PA2,2;"))
	require.NoError(t, err)
	j, err := m.Start(context.Background())
	require.NoError(t, err)

	// no wait for the job goroutine to reach Running
	require.NoError(t, m.Pause())
	assert.Equal(t, job.StatePaused, j.State())
	assert.Never(t, func() bool { return len(dev.Received()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, m.Resume())
	j.Wait()
	m.Wait()
	assert.Equal(t, []string{"PU:", "PA:1,1", "PA:2,2", "PU:"}, dev.Received())
}

func TestMachine_Replace(t *testing.T) {
	m, _ := newTestMachine(t, DefaultOptions())
	res, err := m.Load(strings.NewReader("PA1,1;"))
	require.NoError(t, err)
	scaled := res.Scale(2)

	m.Replace(scaled)
	assert.Same(t, scaled, m.Document().Result())
}
