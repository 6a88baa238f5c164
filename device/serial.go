package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/tarm/serial"
)

// ErrPortBusy is returned when another process holds the port lock.
var ErrPortBusy = errors.New("serial port in use")

type SerialConfig struct {
	Port string
	Baud int

	// ResetDelay is how long to wait for the controller to reboot
	// after the port is opened.
	ResetDelay time.Duration

	// LockDir holds the per-port lock files; os.TempDir() when empty.
	LockDir string
}

func (cfg SerialConfig) lockPath() string {
	dir := cfg.LockDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Base(cfg.Port))
	return filepath.Join(dir, "hpglaser-"+name+".lock")
}

// LockPort takes the exclusive lock for cfg.Port without opening it.
func LockPort(cfg SerialConfig) (*flock.Flock, error) {
	lock := flock.New(cfg.lockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", cfg.Port, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", cfg.Port, ErrPortBusy)
	}
	return lock, nil
}

type lockedPort struct {
	*serial.Port
	lock *flock.Flock
}

func (p *lockedPort) Close() error {
	err := p.Port.Close()
	if uErr := p.lock.Unlock(); err == nil {
		err = uErr
	}
	return err
}

// OpenSerial opens and locks a serial port and returns a Conn for it.
//
// Anything the controller prints while booting is discarded.
func OpenSerial(cfg SerialConfig, opts ...ConnOption) (*Conn, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	lock, err := LockPort(cfg)
	if err != nil {
		return nil, err
	}

	p, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: cfg.Baud})
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	time.Sleep(cfg.ResetDelay)
	err = p.Flush()
	if err != nil {
		p.Close()
		lock.Unlock()
		return nil, fmt.Errorf("flush %s: %w", cfg.Port, err)
	}

	return NewConn(&lockedPort{Port: p, lock: lock}, opts...), nil
}
