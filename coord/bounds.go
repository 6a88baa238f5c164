package coord

// Bounds is the running min/max of a set of points.
//
// The zero value is empty: no point has been added yet. An empty
// Bounds reports (0,0,0,0) from Rect, but Empty still distinguishes
// it from a drawing made of the single point (0,0).
type Bounds struct {
	Min, Max Point

	set bool
}

// NewBounds returns Bounds covering every point given.
func NewBounds(pts ...Point) Bounds {
	var b Bounds
	for _, p := range pts {
		b = b.Add(p)
	}
	return b
}

func (b Bounds) Empty() bool { return !b.set }

// Add grows b to include p.
func (b Bounds) Add(p Point) Bounds {
	if !b.set {
		return Bounds{Min: p, Max: p, set: true}
	}
	b.Min.X = min(b.Min.X, p.X)
	b.Min.Y = min(b.Min.Y, p.Y)
	b.Max.X = max(b.Max.X, p.X)
	b.Max.Y = max(b.Max.Y, p.Y)
	return b
}

// Rect returns (minX, minY, maxX, maxY), all zero when empty.
func (b Bounds) Rect() (minX, minY, maxX, maxY int) {
	return b.Min.X, b.Min.Y, b.Max.X, b.Max.Y
}

func (b Bounds) Width() int  { return b.Max.X - b.Min.X }
func (b Bounds) Height() int { return b.Max.Y - b.Min.Y }

// CanScale is false when there is no extent on either axis to fit.
func (b Bounds) CanScale() bool {
	return b.set && b.Width() != 0 && b.Height() != 0
}

// Translate moves both corners by d.
func (b Bounds) Translate(d Point) Bounds {
	if !b.set {
		return b
	}
	b.Min = b.Min.Add(d)
	b.Max = b.Max.Add(d)
	return b
}

// Scale multiplies both corners by f, keeping Min <= Max for negative factors.
func (b Bounds) Scale(f float64) Bounds {
	if !b.set {
		return b
	}
	return NewBounds(b.Min.Mul(f), b.Max.Mul(f))
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return b.set &&
		p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}
