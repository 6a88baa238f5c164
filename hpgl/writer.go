package hpgl

import (
	"bufio"
	"io"
	"strconv"
)

// WriteHPGL serializes cmds back into HPGL.
//
// MoveTo is written as PU or PD with the coordinates, depending on the
// pen state at that point. SetPower becomes SP with the nearest pen.
func WriteHPGL(w io.Writer, cmds []Command) error {
	bw := bufio.NewWriter(w)
	vm := NewVM()
	for _, c := range cmds {
		switch c.Kind {
		case KindHome:
			bw.WriteString("IN;")
		case KindPenUp:
			bw.WriteString("PU;")
		case KindPenDown:
			bw.WriteString("PD;")
		case KindMoveTo:
			if vm.PenDown() {
				bw.WriteString("PD")
			} else {
				bw.WriteString("PU")
			}
			bw.WriteString(c.Pos.String() + ";")
		case KindSetPower:
			bw.WriteString("SP" + strconv.Itoa(PowerPen(c.Power)) + ";")
		}
		vm.Run(c)
	}
	return bw.Flush()
}

const commandFileHeader = "# HPGL laser commands\n# Format: COMMAND:PARAMS\n# One command per line, send over serial\n\n"

// WriteCommandFile writes cmds in device wire form, one per line, after a
// short comment header.
func WriteCommandFile(w io.Writer, cmds []Command) error {
	_, err := io.WriteString(w, commandFileHeader)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, NewBuffer(&CommandsReader{Commands: cmds}))
	return err
}
