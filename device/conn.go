package device

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when writing to a closed Conn.
var ErrNotConnected = errors.New("not connected")

const lineBuffer = 64

// Conn is a Session over any ReadWriter, usually a serial port.
type Conn struct {
	rw io.ReadWriter
	w  *bufio.Writer

	lines    chan string
	closeCh  chan struct{}
	readDone chan struct{}
	once     sync.Once

	wMx     sync.Mutex
	mx      sync.Mutex
	readErr error

	log    zerolog.Logger
	onInfo func(string)
}

var _ Session = &Conn{}

type ConnOption func(*Conn)

// WithLogger sets the logger used for traffic at debug level.
func WithLogger(l zerolog.Logger) ConnOption {
	return func(c *Conn) { c.log = l }
}

// WithInfoHandler receives INFO lines, which are never returned as replies.
func WithInfoHandler(fn func(string)) ConnOption {
	return func(c *Conn) { c.onInfo = fn }
}

// NewConn creates a new Conn using the provided ReadWriter for data.
func NewConn(rw io.ReadWriter, opts ...ConnOption) *Conn {
	c := &Conn{
		rw:       rw,
		w:        bufio.NewWriter(rw),
		lines:    make(chan string, lineBuffer),
		closeCh:  make(chan struct{}),
		readDone: make(chan struct{}),
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.readDone)
	scan := bufio.NewScanner(c.rw)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		if ParseReply(line).Kind == ReplyInfo {
			c.log.Debug().Str("line", line).Msg("device info")
			if c.onInfo != nil {
				c.onInfo(line)
			}
			continue
		}
		c.log.Debug().Str("line", line).Msg("recv")
		select {
		case c.lines <- line:
		case <-c.closeCh:
			return
		}
	}

	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	c.mx.Lock()
	c.readErr = err
	c.mx.Unlock()
	select {
	case <-c.closeCh:
	default:
		c.log.Warn().Err(err).Msg("device read stopped")
	}
}

// Err returns the error that stopped the read loop, if it has stopped.
func (c *Conn) Err() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.readErr
}

func (c *Conn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// SendLine writes line followed by a newline and flushes it.
func (c *Conn) SendLine(line string) error {
	if c.closed() {
		return ErrNotConnected
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	if err := c.Err(); err != nil && err != io.EOF {
		return err
	}

	c.wMx.Lock()
	defer c.wMx.Unlock()
	_, err := c.w.WriteString(line)
	if err == nil {
		err = c.w.Flush()
	}
	if err != nil {
		c.w.Reset(c.rw)
		return err
	}
	c.log.Debug().Str("line", strings.TrimSpace(line)).Msg("send")
	return nil
}

// AwaitLine returns the next reply line, waiting at most timeout.
func (c *Conn) AwaitLine(ctx context.Context, timeout time.Duration) (string, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case line := <-c.lines:
		return line, true
	default:
	}

	select {
	case line := <-c.lines:
		return line, true
	case <-c.readDone:
		// pick up anything queued before the reader stopped
		select {
		case line := <-c.lines:
			return line, true
		default:
			return "", false
		}
	case <-ctx.Done():
		return "", false
	case <-t.C:
		return "", false
	case <-c.closeCh:
		return "", false
	}
}

// Drain discards every reply line received so far.
func (c *Conn) Drain() (n int) {
	for {
		select {
		case <-c.lines:
			n++
		default:
			return n
		}
	}
}

// Close will abort pending waits and close the
// underlying ReadWriter, if it implements io.Closer.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closeCh)
		if closer, ok := c.rw.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}
