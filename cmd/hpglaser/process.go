package main

import (
	"os"

	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type summary struct {
	Input    string `yaml:"input" json:"input,omitempty"`
	Commands int    `yaml:"commands" json:"commands"`
	Moves    int    `yaml:"moves" json:"moves"`
	Bounds   struct {
		MinX int `yaml:"min_x" json:"min_x"`
		MinY int `yaml:"min_y" json:"min_y"`
		MaxX int `yaml:"max_x" json:"max_x"`
		MaxY int `yaml:"max_y" json:"max_y"`
	} `yaml:"bounds" json:"bounds"`
	Empty   bool              `yaml:"empty" json:"empty"`
	Outputs map[string]string `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

func newSummary(input string, res *hpgl.Result) summary {
	s := summary{
		Input:    input,
		Commands: len(res.Commands),
		Moves:    res.Moves(),
		Empty:    res.Bounds.Empty(),
	}
	s.Bounds.MinX, s.Bounds.MinY, s.Bounds.MaxX, s.Bounds.MaxY = res.Bounds.Rect()
	return s
}

func writeFile(name string, fn func(*os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = fn(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newProcessCommand(a *app) *cobra.Command {
	var (
		tf          transformFlags
		hpglOut     string
		commandsOut string
		showSummary bool
	)
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Parse an HPGL file, transform it and export the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf.defaults(a.cfg)
			res, err := loadFile(args[0], hpgl.ParseOptions{Segments: a.cfg.Job.Segments})
			if err != nil {
				return err
			}
			res, err = tf.apply(res, a.log)
			if err != nil {
				return err
			}
			sum := newSummary(args[0], res)

			if hpglOut != "" {
				err = writeFile(hpglOut, func(f *os.File) error { return hpgl.WriteHPGL(f, res.Commands) })
				if err != nil {
					return err
				}
				sum.Outputs = map[string]string{"hpgl": hpglOut}
			}
			if commandsOut != "" {
				err = writeFile(commandsOut, func(f *os.File) error { return hpgl.WriteCommandFile(f, res.Commands) })
				if err != nil {
					return err
				}
				if sum.Outputs == nil {
					sum.Outputs = make(map[string]string)
				}
				sum.Outputs["commands"] = commandsOut
			}
			a.log.Info().Str("file", args[0]).Int("commands", len(res.Commands)).Msg("processed")

			if !showSummary {
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			err = enc.Encode(sum)
			if err != nil {
				return err
			}
			return enc.Close()
		},
	}
	tf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&hpglOut, "output", "o", "", "Write the transformed drawing as HPGL.")
	cmd.Flags().StringVarP(&commandsOut, "commands", "a", "", "Write the device command file.")
	cmd.Flags().BoolVar(&showSummary, "summary", false, "Print a YAML summary to stdout.")
	return cmd
}
