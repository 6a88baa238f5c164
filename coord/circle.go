package coord

import "math"

// Circle will return n evenly spaced points on the circle of radius r
// around p, starting one step past angle 0 and ending back on it.
//
// Coordinates are rounded, not truncated.
func (p Point) Circle(r int, n int) []Point {
	if n <= 0 {
		return nil
	}
	res := make([]Point, n)
	for i := range res {
		angle := 2 * math.Pi * float64(i+1) / float64(n)
		res[i] = Point{
			X: p.X + Round(float64(r)*math.Cos(angle)),
			Y: p.Y + Round(float64(r)*math.Sin(angle)),
		}
	}
	return res
}
