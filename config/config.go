// Package config loads hpglaser settings from defaults, an optional YAML
// file and HPGLASER_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mastercactapus/hpglaser/device"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/mastercactapus/hpglaser/machine"
	"github.com/rs/zerolog"
)

// EnvPrefix is stripped from environment variables; the first underscore
// after it separates section and key, e.g. HPGLASER_JOB_PARK_ON_FINISH.
const EnvPrefix = "HPGLASER_"

type Config struct {
	Log      LogConfig      `koanf:"log"`
	Serial   SerialConfig   `koanf:"serial"`
	Job      JobConfig      `koanf:"job"`
	WorkArea WorkAreaConfig `koanf:"workarea"`
	Server   ServerConfig   `koanf:"server"`
	EStop    EStopConfig    `koanf:"estop"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	// Format is "console" or "json".
	Format string `koanf:"format"`
}

type SerialConfig struct {
	Port       string        `koanf:"port"`
	Baud       int           `koanf:"baud"`
	ResetDelay time.Duration `koanf:"reset_delay"`
	LockDir    string        `koanf:"lock_dir"`

	// WebSocket is a serial bridge URL used instead of Port when set.
	WebSocket string `koanf:"websocket"`
}

type JobConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
	// InitialPower is sent before each job; negative disables it.
	InitialPower int  `koanf:"initial_power"`
	ParkOnFinish bool `koanf:"park_on_finish"`
	// Segments per CI circle.
	Segments int `koanf:"segments"`
}

// WorkAreaConfig is the engraving area in plotter units.
type WorkAreaConfig struct {
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

type ServerConfig struct {
	Addr    string `koanf:"addr"`
	DataDir string `koanf:"data_dir"`
}

type EStopConfig struct {
	Enabled bool   `koanf:"enabled"`
	Chip    string `koanf:"chip"`
	Line    int    `koanf:"line"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Serial: SerialConfig{
			Baud:       115200,
			ResetDelay: 2 * time.Second,
		},
		Job: JobConfig{
			Timeout:      10 * time.Second,
			PollInterval: 100 * time.Millisecond,
			InitialPower: -1,
			Segments:     hpgl.DefaultSegments,
		},
		WorkArea: WorkAreaConfig{Width: 1800, Height: 1800},
		Server:   ServerConfig{Addr: ":9091", DataDir: "./data"},
		EStop:    EStopConfig{Chip: "gpiochip0", Line: 17},
	}
}

func defaultMap() map[string]any {
	def := Default()
	return map[string]any{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,

		"serial.port":        def.Serial.Port,
		"serial.baud":        def.Serial.Baud,
		"serial.reset_delay": def.Serial.ResetDelay,
		"serial.lock_dir":    def.Serial.LockDir,
		"serial.websocket":   def.Serial.WebSocket,

		"job.timeout":        def.Job.Timeout,
		"job.poll_interval":  def.Job.PollInterval,
		"job.initial_power":  def.Job.InitialPower,
		"job.park_on_finish": def.Job.ParkOnFinish,
		"job.segments":       def.Job.Segments,

		"workarea.width":  def.WorkArea.Width,
		"workarea.height": def.WorkArea.Height,

		"server.addr":     def.Server.Addr,
		"server.data_dir": def.Server.DataDir,

		"estop.enabled": def.EStop.Enabled,
		"estop.chip":    def.EStop.Chip,
		"estop.line":    def.EStop.Line,
	}
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads the configuration. An empty path skips the file; a missing
// file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	err := k.Load(confmap.Provider(defaultMap(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return nil, fmt.Errorf("load config file '%s': %w", path, err)
		}
	}

	err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Serial.Baud <= 0 {
		errs = append(errs, errors.New("serial.baud must be positive"))
	}
	if c.Job.Timeout <= 0 {
		errs = append(errs, errors.New("job.timeout must be positive"))
	}
	if c.Job.PollInterval <= 0 {
		errs = append(errs, errors.New("job.poll_interval must be positive"))
	}
	if c.Job.InitialPower > hpgl.MaxPower {
		errs = append(errs, fmt.Errorf("job.initial_power must be at most %d", hpgl.MaxPower))
	}
	if c.Job.Segments <= 0 {
		errs = append(errs, errors.New("job.segments must be positive"))
	}
	if c.WorkArea.Width <= 0 || c.WorkArea.Height <= 0 {
		errs = append(errs, errors.New("workarea must have a positive size"))
	}
	_, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Logger builds the root logger. Console format is used on w unless
// Format is json.
func (c LogConfig) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if c.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func (c SerialConfig) Device() device.SerialConfig {
	return device.SerialConfig{
		Port:       c.Port,
		Baud:       c.Baud,
		ResetDelay: c.ResetDelay,
		LockDir:    c.LockDir,
	}
}

func (c Config) MachineOptions(log zerolog.Logger) machine.Options {
	return machine.Options{
		Timeout:      c.Job.Timeout,
		PollInterval: c.Job.PollInterval,
		InitialPower: c.Job.InitialPower,
		ParkOnFinish: c.Job.ParkOnFinish,
		Parse:        hpgl.ParseOptions{Segments: c.Job.Segments},
		Logger:       log,
	}
}
