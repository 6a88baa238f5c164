package hpgl

import (
	"math"
	"strconv"

	"github.com/mastercactapus/hpglaser/coord"
)

// Kind identifies one of the engraving operations.
type Kind byte

const (
	KindHome Kind = iota + 1
	KindPenUp
	KindPenDown
	KindMoveTo
	KindSetPower
)

// MaxPower is the PWM ceiling of the laser output.
const MaxPower = 255

// MaxPen is the highest HPGL pen index mapped onto laser power.
const MaxPen = 8

func (k Kind) String() string {
	switch k {
	case KindHome:
		return "Home"
	case KindPenUp:
		return "PenUp"
	case KindPenDown:
		return "PenDown"
	case KindMoveTo:
		return "MoveTo"
	case KindSetPower:
		return "SetPower"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Command is a single engraving operation.
//
// Only MoveTo carries a position and only SetPower carries a power;
// use the constructors so the other fields stay zero.
type Command struct {
	Kind  Kind
	Pos   coord.Point
	Power int
}

func Home() Command    { return Command{Kind: KindHome} }
func PenUp() Command   { return Command{Kind: KindPenUp} }
func PenDown() Command { return Command{Kind: KindPenDown} }

func MoveTo(x, y int) Command { return Command{Kind: KindMoveTo, Pos: coord.Point{X: x, Y: y}} }

// SetPower clamps power into [0,MaxPower].
func SetPower(power int) Command {
	return Command{Kind: KindSetPower, Power: max(0, min(MaxPower, power))}
}

// String returns the device wire form of the command, without a line terminator.
func (c Command) String() string {
	switch c.Kind {
	case KindHome:
		return "HOME:"
	case KindPenUp:
		return "PU:"
	case KindPenDown:
		return "PD:"
	case KindMoveTo:
		return "PA:" + c.Pos.String()
	case KindSetPower:
		return "SP:" + strconv.Itoa(c.Power)
	}
	return ""
}

// PenPower maps an HPGL pen index onto laser power, rounding half up.
func PenPower(pen int) int {
	return max(0, min(MaxPower, coord.Round(float64(pen)/MaxPen*MaxPower)))
}

// PowerPen is the inverse of PenPower, clamped to [0,MaxPen].
//
// The round trip is not exact: both directions round.
func PowerPen(power int) int {
	return max(0, min(MaxPen, int(math.Round(float64(power)/MaxPower*MaxPen))))
}
