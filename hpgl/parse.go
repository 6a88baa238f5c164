package hpgl

import (
	"io"
	"strings"

	"github.com/mastercactapus/hpglaser/coord"
)

// DefaultSegments is the number of chords a CI circle is drawn with.
const DefaultSegments = 36

// ParseOptions tune the expansion done while parsing.
type ParseOptions struct {
	// Segments per expanded circle; DefaultSegments when zero.
	Segments int
}

type builder struct {
	cmds     []Command
	bounds   coord.Bounds
	segments int
}

func (b *builder) emit(c Command) { b.cmds = append(b.cmds, c) }

func (b *builder) move(p coord.Point) {
	b.bounds = b.bounds.Add(p)
	b.emit(Command{Kind: KindMoveTo, Pos: p})
}

// pairs emits one MoveTo per consecutive pair; an odd trailing value is dropped.
func (b *builder) pairs(nums []int) {
	for i := 0; i+1 < len(nums); i += 2 {
		b.move(coord.Point{X: nums[i], Y: nums[i+1]})
	}
}

// circle replaces the trailing MoveTo (the center) with a closed polyline.
func (b *builder) circle(r int) {
	n := len(b.cmds)
	if n == 0 || b.cmds[n-1].Kind != KindMoveTo {
		return
	}
	center := b.cmds[n-1].Pos
	b.cmds = b.cmds[:n-1]

	b.emit(PenUp())
	b.move(center.Add(coord.Point{X: r}))
	b.emit(PenDown())
	for _, p := range center.Circle(r, b.segments) {
		b.move(p)
	}
	b.emit(PenUp())
}

func (b *builder) statement(st Statement) error {
	switch st.Mnemonic {
	case "IN":
		b.emit(Home())
		return nil
	case "PU", "PD", "PA", "SP", "CI":
	default:
		return nil
	}

	nums, err := st.Ints()
	if err != nil {
		return err
	}

	switch st.Mnemonic {
	case "PU":
		b.emit(PenUp())
		b.pairs(nums)
	case "PD":
		b.emit(PenDown())
		b.pairs(nums)
	case "PA":
		b.pairs(nums)
	case "SP":
		if len(nums) > 0 {
			b.emit(SetPower(PenPower(nums[0])))
		}
	case "CI":
		if len(nums) > 0 {
			b.circle(nums[0])
		}
	}
	return nil
}

// ParseReader reads a full HPGL document from r.
//
// Nothing is returned unless the whole document parses.
func ParseReader(r io.Reader, opt ParseOptions) (*Result, error) {
	b := &builder{segments: opt.Segments}
	if b.segments <= 0 {
		b.segments = DefaultSegments
	}

	p := NewParser(r)
	for {
		st, err := p.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Index: p.n, Err: err}
		}
		err = b.statement(st)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Commands: b.cmds, Bounds: b.bounds}, nil
}

// Parse parses an HPGL document with default options.
func Parse(data string) (*Result, error) {
	return ParseReader(strings.NewReader(data), ParseOptions{})
}

func MustParse(data string) *Result {
	r, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return r
}
