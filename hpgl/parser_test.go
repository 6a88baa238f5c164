package hpgl

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Read(t *testing.T) {
	p := NewParser(strings.NewReader("in;\n PA 1, 2 ;;P;PD"))

	st, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, Statement{Index: 0, Mnemonic: "IN"}, st)

	st, err = p.Read()
	require.NoError(t, err)
	assert.Equal(t, Statement{Index: 1, Mnemonic: "PA", Params: "1,2"}, st)

	st, err = p.Read()
	require.NoError(t, err)
	assert.Equal(t, Statement{Index: 2, Mnemonic: "P"}, st)

	// last statement has no terminator
	st, err = p.Read()
	require.NoError(t, err)
	assert.Equal(t, Statement{Index: 3, Mnemonic: "PD"}, st)

	_, err = p.Read()
	assert.Equal(t, io.EOF, err)
}

func TestStatement_Ints(t *testing.T) {
	nums, err := Statement{Mnemonic: "PA", Params: "1,-2,,+3,"}.Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{1, -2, 3}, nums)

	nums, err = Statement{Mnemonic: "PA"}.Ints()
	require.NoError(t, err)
	assert.Nil(t, nums)
}
