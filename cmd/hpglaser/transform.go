package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mastercactapus/hpglaser/config"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// transformFlags are the geometry options shared by process, run and preview.
type transformFlags struct {
	scale  float64
	center bool
	fit    bool
	width  int
	height int
}

func (t *transformFlags) bind(fs *pflag.FlagSet) {
	fs.Float64VarP(&t.scale, "scale", "s", 1, "Scale factor applied to every coordinate.")
	fs.BoolVarP(&t.center, "center", "c", false, "Center the drawing in the work area.")
	fs.BoolVar(&t.fit, "fit", false, "Scale the drawing to fill the work area.")
	fs.IntVarP(&t.width, "width", "w", 0, "Work area width in plotter units (default from config).")
	fs.IntVarP(&t.height, "height", "t", 0, "Work area height in plotter units (default from config).")
}

func (t *transformFlags) defaults(cfg *config.Config) {
	if t.width == 0 {
		t.width = cfg.WorkArea.Width
	}
	if t.height == 0 {
		t.height = cfg.WorkArea.Height
	}
}

// apply runs fit, scale then center on res and returns the result.
// res itself is never modified.
func (t transformFlags) apply(res *hpgl.Result, log zerolog.Logger) (*hpgl.Result, error) {
	if t.width <= 0 || t.height <= 0 {
		return nil, fmt.Errorf("invalid work area %dx%d", t.width, t.height)
	}
	var err error
	if t.fit {
		res, err = res.Fit(t.width, t.height)
		if err != nil {
			return nil, err
		}
	}
	if t.scale != 1 {
		res = res.Scale(t.scale)
	}
	if t.center {
		res, err = res.Center(t.width, t.height)
		if errors.Is(err, hpgl.ErrNothingToCenter) {
			log.Warn().Err(err).Msg("center skipped")
			return res, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func loadFile(name string, opt hpgl.ParseOptions) (*hpgl.Result, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := hpgl.ParseReader(f, opt)
	if err != nil {
		return nil, fmt.Errorf("parse '%s': %w", name, err)
	}
	return res, nil
}
