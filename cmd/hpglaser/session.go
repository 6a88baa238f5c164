package main

import (
	"context"
	"errors"

	"github.com/mastercactapus/hpglaser/device"
	"github.com/mastercactapus/hpglaser/device/sim"
	"github.com/spf13/pflag"
)

type sessionFlags struct {
	port     string
	baud     int
	ws       string
	simulate bool
}

func (s *sessionFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&s.port, "port", "", "Serial port of the controller (default from config).")
	fs.IntVar(&s.baud, "baud", 0, "Serial baud rate (default from config).")
	fs.StringVar(&s.ws, "ws", "", "Websocket URL of a serial bridge.")
	fs.BoolVar(&s.simulate, "simulate", false, "Use the built-in controller simulator.")
}

// open connects to the controller. The returned Conn owns the transport.
func (s sessionFlags) open(ctx context.Context, a *app) (*device.Conn, error) {
	opts := []device.ConnOption{
		device.WithLogger(a.log),
		device.WithInfoHandler(func(line string) {
			a.log.Info().Str("line", line).Msg("controller")
		}),
	}

	switch {
	case s.simulate:
		a.log.Info().Msg("using simulated controller")
		return device.NewConn(sim.New(), opts...), nil
	case s.ws != "" || (s.port == "" && a.cfg.Serial.WebSocket != ""):
		url := s.ws
		if url == "" {
			url = a.cfg.Serial.WebSocket
		}
		rw, err := device.DialWebsocket(ctx, url)
		if err != nil {
			return nil, err
		}
		a.log.Info().Str("url", url).Msg("connected to serial bridge")
		return device.NewConn(rw, opts...), nil
	}

	cfg := a.cfg.Serial.Device()
	if s.port != "" {
		cfg.Port = s.port
	}
	if s.baud != 0 {
		cfg.Baud = s.baud
	}
	if cfg.Port == "" {
		return nil, errors.New("no controller: set --port, --ws or --simulate")
	}
	c, err := device.OpenSerial(cfg, opts...)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("serial port open")
	return c, nil
}
