// Package preview rasterizes a command stream so a job can be checked
// before the laser fires.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/mastercactapus/hpglaser/coord"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

type Options struct {
	Width, Height int

	// Margin in pixels on every side.
	Margin int

	// LineWidth of burn segments in pixels; travel is drawn at half.
	LineWidth float64

	Background, Burn, Travel color.Color

	// HideTravel skips pen-up moves.
	HideTravel bool
}

var DefaultOptions = Options{
	Width:      800,
	Height:     800,
	Margin:     10,
	LineWidth:  2,
	Background: color.White,
	Burn:       color.RGBA{R: 0xc0, A: 0xff},
	Travel:     color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
}

func (o Options) withDefaults() Options {
	d := DefaultOptions
	if o.Width > 0 {
		d.Width = o.Width
	}
	if o.Height > 0 {
		d.Height = o.Height
	}
	if o.Margin > 0 {
		d.Margin = o.Margin
	}
	if o.LineWidth > 0 {
		d.LineWidth = o.LineWidth
	}
	if o.Background != nil {
		d.Background = o.Background
	}
	if o.Burn != nil {
		d.Burn = o.Burn
	}
	if o.Travel != nil {
		d.Travel = o.Travel
	}
	d.HideTravel = o.HideTravel
	return d
}

// transform maps device units onto the image, keeping aspect and
// flipping y so that +y points up.
type transform struct {
	scale      float64
	minX, minY int
	offX, offY float64
	height     int
}

func newTransform(b coord.Bounds, o Options) transform {
	availW := float64(o.Width - 2*o.Margin)
	availH := float64(o.Height - 2*o.Margin)
	t := transform{scale: 1, height: o.Height, minX: b.Min.X, minY: b.Min.Y}
	w, h := float64(b.Width()), float64(b.Height())
	switch {
	case w > 0 && h > 0:
		t.scale = min(availW/w, availH/h)
	case w > 0:
		t.scale = availW / w
	case h > 0:
		t.scale = availH / h
	}
	t.offX = float64(o.Margin) + (availW-w*t.scale)/2
	t.offY = float64(o.Margin) + (availH-h*t.scale)/2
	return t
}

func (t transform) apply(p coord.Point) fixed.Point26_6 {
	x := t.offX + float64(p.X-t.minX)*t.scale
	y := float64(t.height) - (t.offY + float64(p.Y-t.minY)*t.scale)
	return rasterx.ToFixedP(x, y)
}

// Render draws res onto a new image. Burn segments are solid, travel
// moves dashed.
func Render(res *hpgl.Result, opt Options) *image.RGBA {
	opt = opt.withDefaults()
	img := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opt.Background), image.Point{}, draw.Src)

	segs := hpgl.Segments(res.Commands)
	if len(segs) == 0 {
		return img
	}

	var b coord.Bounds
	for _, s := range segs {
		if s.Down || !opt.HideTravel {
			b = b.Add(s.From).Add(s.To)
		}
	}
	if b.Empty() {
		return img
	}
	t := newTransform(b, opt)

	scanner := rasterx.NewScannerGV(opt.Width, opt.Height, img, img.Bounds())
	d := rasterx.NewDasher(opt.Width, opt.Height, scanner)

	stroke := func(down bool) {
		d.Clear()
		if down {
			d.SetStroke(fixed.Int26_6(opt.LineWidth*64), 4*64, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round, nil, 0)
			d.SetColor(opt.Burn)
		} else {
			w := opt.LineWidth / 2
			d.SetStroke(fixed.Int26_6(w*64), 4*64, rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Bevel, []float64{4 * opt.LineWidth, 3 * opt.LineWidth}, 0)
			d.SetColor(opt.Travel)
		}
		for _, s := range segs {
			if s.Down != down || s.From == s.To {
				continue
			}
			d.Start(t.apply(s.From))
			d.Line(t.apply(s.To))
			d.Stop(false)
		}
		d.Draw()
	}

	if !opt.HideTravel {
		stroke(false)
	}
	stroke(true)
	return img
}

// WritePNG renders res and encodes it to w.
func WritePNG(w io.Writer, res *hpgl.Result, opt Options) error {
	return png.Encode(w, Render(res, opt))
}
