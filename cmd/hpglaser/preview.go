package main

import (
	"os"

	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/mastercactapus/hpglaser/preview"
	"github.com/spf13/cobra"
)

func newPreviewCommand(a *app) *cobra.Command {
	var (
		tf         transformFlags
		out        string
		opt        = preview.DefaultOptions
		hideTravel bool
	)
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Render an HPGL file to a PNG image",
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
			opt.HideTravel = hideTravel
			err = writeFile(out, func(f *os.File) error { return preview.WritePNG(f, res, opt) })
			if err != nil {
				return err
			}
			a.log.Info().Str("file", out).Msg("preview written")
			return nil
		},
	}
	tf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&out, "output", "o", "preview.png", "PNG file to write.")
	cmd.Flags().IntVar(&opt.Width, "px-width", opt.Width, "Image width in pixels.")
	cmd.Flags().IntVar(&opt.Height, "px-height", opt.Height, "Image height in pixels.")
	cmd.Flags().BoolVar(&hideTravel, "no-travel", false, "Do not draw pen-up moves.")
	return cmd
}
