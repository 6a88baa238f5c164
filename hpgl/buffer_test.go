package hpgl

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_Read(t *testing.T) {
	cmds := []Command{MoveTo(1, 2), PenDown()}

	b := NewBuffer(&CommandsReader{Commands: cmds})

	buf := make([]byte, 16)
	n, err := b.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, []byte("PA:1,2\nPD:\n"), buf[:n])

	n, err = b.Read(buf)
	assert.Error(t, err)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)
}

func TestCommandsReader(t *testing.T) {
	r := &CommandsReader{Commands: []Command{Home(), SetPower(12)}}

	c, err := r.Read()
	assert.NoError(t, err)
	assert.Equal(t, Home(), c)

	c, err = r.Read()
	assert.NoError(t, err)
	assert.Equal(t, "SP:12", c.String())

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}
