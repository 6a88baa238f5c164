package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBounds_Empty(t *testing.T) {
	var b Bounds
	assert.True(t, b.Empty())
	assert.False(t, b.CanScale())

	minX, minY, maxX, maxY := b.Rect()
	assert.Equal(t, [4]int{0, 0, 0, 0}, [4]int{minX, minY, maxX, maxY})

	// a single point at the origin is not empty
	b = b.Add(Point{})
	assert.False(t, b.Empty())
	assert.False(t, b.CanScale())
}

func TestBounds_Add(t *testing.T) {
	b := NewBounds(Point{X: 100, Y: 200}, Point{X: 150, Y: 250}, Point{X: 120, Y: 10})
	assert.Equal(t, Point{X: 100, Y: 10}, b.Min)
	assert.Equal(t, Point{X: 150, Y: 250}, b.Max)
	assert.Equal(t, 50, b.Width())
	assert.Equal(t, 240, b.Height())
	assert.True(t, b.CanScale())
	assert.True(t, b.Contains(Point{X: 150, Y: 10}))
	assert.False(t, b.Contains(Point{X: 151, Y: 10}))
}

func TestBounds_Transform(t *testing.T) {
	b := NewBounds(Point{}, Point{X: 100, Y: 100})

	assert.Equal(t, NewBounds(Point{}, Point{X: 200, Y: 200}), b.Scale(2))
	assert.Equal(t, NewBounds(Point{X: 850, Y: 850}, Point{X: 950, Y: 950}), b.Translate(Point{X: 850, Y: 850}))
	assert.Equal(t, NewBounds(Point{X: -100, Y: -100}, Point{}), b.Scale(-1))

	var empty Bounds
	assert.True(t, empty.Scale(2).Empty())
	assert.True(t, empty.Translate(Point{X: 1, Y: 1}).Empty())
}
