package hpgl

import (
	"math"

	"github.com/mastercactapus/hpglaser/coord"
)

// Result is the command sequence and bounds produced by one parse.
//
// Transforms never modify a Result; they return a new one.
type Result struct {
	Commands []Command
	Bounds   coord.Bounds
}

// Moves counts the MoveTo commands.
func (r *Result) Moves() int {
	var n int
	for _, c := range r.Commands {
		if c.Kind == KindMoveTo {
			n++
		}
	}
	return n
}

func (r *Result) mapMoves(fn func(coord.Point) coord.Point) []Command {
	res := make([]Command, len(r.Commands))
	for i, c := range r.Commands {
		if c.Kind == KindMoveTo {
			c.Pos = fn(c.Pos)
		}
		res[i] = c
	}
	return res
}

// Scale multiplies every coordinate and the bounds by factor.
func (r *Result) Scale(factor float64) *Result {
	return &Result{
		Commands: r.mapMoves(func(p coord.Point) coord.Point { return p.Mul(factor) }),
		Bounds:   r.Bounds.Scale(factor),
	}
}

// Offset translates every coordinate and the bounds by d.
func (r *Result) Offset(d coord.Point) *Result {
	return &Result{
		Commands: r.mapMoves(func(p coord.Point) coord.Point { return p.Add(d) }),
		Bounds:   r.Bounds.Translate(d),
	}
}

// CenterOffset is the translation that centers the drawing in a width x height area.
func (r *Result) CenterOffset(width, height int) coord.Point {
	b := r.Bounds
	return coord.Point{
		X: coord.Round(float64(width-b.Width())/2 - float64(b.Min.X)),
		Y: coord.Round(float64(height-b.Height())/2 - float64(b.Min.Y)),
	}
}

// Center moves the drawing to the middle of a width x height area.
//
// With empty bounds r is returned as is together with ErrNothingToCenter.
func (r *Result) Center(width, height int) (*Result, error) {
	if r.Bounds.Empty() {
		return r, ErrNothingToCenter
	}
	return r.Offset(r.CenterOffset(width, height)), nil
}

// Fit scales the drawing to the largest size that fits in width x height
// and centers it.
func (r *Result) Fit(width, height int) (*Result, error) {
	if !r.Bounds.CanScale() {
		return r, ErrCannotScale
	}
	f := math.Min(
		float64(width)/float64(r.Bounds.Width()),
		float64(height)/float64(r.Bounds.Height()),
	)
	return r.Scale(f).Center(width, height)
}
