package main

import (
	"fmt"
	"os"

	"github.com/mastercactapus/hpglaser/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	configFile string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "hpglaser",
		Short:        "Convert HPGL drawings and run them on a laser engraver",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
				_, err = zerolog.ParseLevel(a.logLevel)
				if err != nil {
					return fmt.Errorf("--log-level: %w", err)
				}
			}
			a.cfg = cfg
			a.log = cfg.Log.Logger(os.Stderr)
			log.Logger = a.log
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML config file.")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config.")

	cmd.AddCommand(
		newProcessCommand(a),
		newRunCommand(a),
		newServeCommand(a),
		newPreviewCommand(a),
	)

	return cmd
}
