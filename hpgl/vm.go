package hpgl

import "github.com/mastercactapus/hpglaser/coord"

// VM will track pen state while interpreting commands.
type VM struct {
	pos   coord.Point
	down  bool
	power int
}

// NewVM constructs a VM at the origin with the pen up.
func NewVM() *VM { return &VM{} }

func (vm VM) Pos() coord.Point { return vm.pos }
func (vm VM) PenDown() bool    { return vm.down }
func (vm VM) Power() int       { return vm.power }

// Segment is a straight move between two points.
type Segment struct {
	From, To coord.Point

	// Down is true when the laser burns along the segment.
	Down  bool
	Power int
}

// Run applies c. For a MoveTo it returns the segment travelled.
func (vm *VM) Run(c Command) (Segment, bool) {
	switch c.Kind {
	case KindHome:
		vm.pos = coord.Point{}
	case KindPenUp:
		vm.down = false
	case KindPenDown:
		vm.down = true
	case KindSetPower:
		vm.power = c.Power
	case KindMoveTo:
		s := Segment{From: vm.pos, To: c.Pos, Down: vm.down, Power: vm.power}
		vm.pos = c.Pos
		return s, true
	}
	return Segment{}, false
}

// Segments returns every move of cmds in order, starting from the origin.
func Segments(cmds []Command) []Segment {
	vm := NewVM()
	var res []Segment
	for _, c := range cmds {
		if s, ok := vm.Run(c); ok {
			res = append(res, s)
		}
	}
	return res
}
