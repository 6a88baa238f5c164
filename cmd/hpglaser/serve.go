package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mastercactapus/hpglaser/machine"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		sf   sessionFlags
		addr string
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for a connected controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dir != "" {
				cfg.Server.DataDir = dir
			}
			err := os.MkdirAll(cfg.Server.DataDir, 0755)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			conn, err := sf.open(ctx, a)
			if err != nil {
				return err
			}
			defer conn.Close()

			m := machine.New(conn, cfg.MachineOptions(a.log))
			if cfg.EStop.Enabled {
				l, err := m.WatchEStop(cfg.EStop.Chip, cfg.EStop.Line)
				if err != nil {
					return err
				}
				defer l.Close()
				a.log.Info().Str("chip", cfg.EStop.Chip).Int("line", cfg.EStop.Line).Msg("watching e-stop input")
			}

			api := newAPI(ctx, m, cfg, a.log)
			defer api.Close()

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					w.Header().Set("Access-Control-Allow-Origin", "*")
					w.Header().Set("Access-Control-Allow-Methods", "*")
					a.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Str("remote", req.RemoteAddr).Msg("request")
					api.ServeHTTP(w, req)
				}),
			}
			go func() {
				<-ctx.Done()
				if j := m.Job(); j != nil && j.State().Active() {
					a.log.Warn().Msg("stopping running job")
					j.Stop()
					j.Wait()
				}
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(sctx)
			}()

			a.log.Info().Str("addr", cfg.Server.Addr).Str("dir", cfg.Server.DataDir).Msg("listening")
			err = srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	sf.bind(cmd.Flags())
	cmd.Flags().StringVar(&addr, "addr", "", "Address to bind the API server to (default from config).")
	cmd.Flags().StringVar(&dir, "dir", "", "Data directory to use (default from config).")
	return cmd
}
