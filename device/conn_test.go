package device

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mastercactapus/hpglaser/device/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_RoundTrip(t *testing.T) {
	dev := sim.New()
	var infos []string
	c := NewConn(dev, WithInfoHandler(func(s string) { infos = append(infos, s) }))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.SendLine("HOME:"))
	line, ok := c.AwaitLine(ctx, time.Second)
	assert.True(t, ok)
	assert.Equal(t, "ACK:HOME", line)

	// terminator is not doubled
	require.NoError(t, c.SendLine("PA:10,10\n"))
	line, ok = c.AwaitLine(ctx, time.Second)
	assert.True(t, ok)
	assert.Equal(t, "ACK:PA", line)

	assert.Equal(t, []string{"HOME:", "PA:10,10"}, dev.Received())
	assert.Equal(t, []string{"INFO:Current position set as (0,0)"}, infos)
}

func TestConn_Timeout(t *testing.T) {
	dev := sim.New()
	dev.Hook = func(string) ([]string, bool) { return nil, true }
	c := NewConn(dev)
	defer c.Close()

	require.NoError(t, c.SendLine("PU:"))
	start := time.Now()
	_, ok := c.AwaitLine(context.Background(), 50*time.Millisecond)
	assert.False(t, ok)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), time.Now(), 500*time.Millisecond)
}

func TestConn_AwaitCancel(t *testing.T) {
	dev := sim.New()
	c := NewConn(dev)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, ok := c.AwaitLine(ctx, 10*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConn_Closed(t *testing.T) {
	c := NewConn(sim.New())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.SendLine("PU:"), ErrNotConnected)
	_, ok := c.AwaitLine(context.Background(), time.Second)
	assert.False(t, ok)
}

type stubRW struct {
	io.Reader
	io.Writer
}

func TestConn_ReaderEnded(t *testing.T) {
	pr, pw := io.Pipe()
	c := NewConn(stubRW{Reader: pr, Writer: io.Discard})
	defer c.Close()

	go func() {
		io.WriteString(pw, "\r\nACK:PU\r\n")
		pw.Close()
	}()

	line, ok := c.AwaitLine(context.Background(), time.Second)
	assert.True(t, ok)
	assert.Equal(t, "ACK:PU", line)

	_, ok = c.AwaitLine(context.Background(), time.Second)
	assert.False(t, ok)
	assert.Equal(t, io.EOF, c.Err())
}

func TestConn_Drain(t *testing.T) {
	pr, pw := io.Pipe()
	c := NewConn(stubRW{Reader: pr, Writer: io.Discard})
	defer c.Close()

	io.WriteString(pw, "HPGL Laser Engraver Ready\nstray\n")
	assert.Eventually(t, func() bool { return len(c.lines) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, c.Drain())
	assert.Equal(t, 0, c.Drain())
}
