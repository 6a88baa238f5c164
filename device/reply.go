package device

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mastercactapus/hpglaser/coord"
)

type ReplyKind int

const (
	ReplyOther ReplyKind = iota
	ReplyAck
	ReplyError
	ReplyInfo
	ReplyStatus
)

// Reply is a classified line received from the controller.
type Reply struct {
	Kind ReplyKind
	Line string
	// Text is the line with its prefix removed.
	Text string
}

// IsError reports whether line is a device-reported error.
func IsError(line string) bool { return strings.HasPrefix(line, "ERR") }

func ParseReply(line string) Reply {
	line = strings.TrimSpace(line)
	r := Reply{Line: line, Text: line}
	cut := func(prefix string, k ReplyKind) bool {
		if !strings.HasPrefix(line, prefix) {
			return false
		}
		r.Kind = k
		r.Text = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, prefix), ":"))
		return true
	}
	switch {
	case cut("ERR", ReplyError):
	case cut("ACK:", ReplyAck):
	case cut("INFO", ReplyInfo):
	case cut("STATUS:", ReplyStatus):
	}
	return r
}

// Status is the controller state reported by a STATUS: query.
type Status struct {
	// Pos is in motor steps, not plotter units.
	Pos   coord.Point
	Laser bool
	Power int
}

// ParseStatus decodes `STATUS:x,y,laser,power`.
func ParseStatus(line string) (*Status, error) {
	r := ParseReply(line)
	if r.Kind != ReplyStatus {
		return nil, errors.New("not a status line: " + line)
	}
	parts := strings.Split(r.Text, ",")
	if len(parts) != 4 {
		return nil, errors.New("invalid number of elements")
	}
	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		vals[i] = n
	}
	return &Status{
		Pos:   coord.Point{X: vals[0], Y: vals[1]},
		Laser: vals[2] != 0,
		Power: vals[3],
	}, nil
}
