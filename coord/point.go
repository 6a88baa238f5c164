package coord

import (
	"math"
	"strconv"
)

// Point is an absolute position in plotter (device) units.
type Point struct{ X, Y int }

func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	return p
}

// Mul scales both axes by val, rounding half away from zero.
func (p Point) Mul(val float64) Point {
	p.X = Round(float64(p.X) * val)
	p.Y = Round(float64(p.Y) * val)
	return p
}

// Distance will return the 2D distance between p and target.
func (p Point) Distance(target Point) float64 {
	return math.Hypot(float64(target.X-p.X), float64(target.Y-p.Y))
}

func (p Point) String() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// Round converts a float to the nearest integer, halves away from zero.
func Round(f float64) int {
	return int(math.Round(f))
}
