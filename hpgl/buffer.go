package hpgl

import (
	"bytes"
	"io"
)

// Buffer renders commands from a Reader as newline terminated wire lines.
type Buffer struct {
	r   Reader
	buf bytes.Buffer
	err error
}

var _ io.Reader = &Buffer{}

func NewBuffer(r Reader) *Buffer {
	return &Buffer{r: r}
}

func (b *Buffer) Read(p []byte) (n int, err error) {
	for b.err == nil && b.buf.Len() < len(p) {
		var c Command
		c, b.err = b.r.Read()
		if b.err != nil {
			break
		}
		b.buf.WriteString(c.String() + "\n")
	}
	if b.buf.Len() > 0 {
		return b.buf.Read(p)
	}
	return 0, b.err
}
