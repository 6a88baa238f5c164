package sim

import (
	"bufio"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T, d *Device, scan *bufio.Scanner, line string, expect ...string) {
	t.Helper()
	_, err := io.WriteString(d, line+"\n")
	require.NoError(t, err)
	for _, e := range expect {
		require.True(t, scan.Scan())
		assert.Equal(t, e, scan.Text())
	}
}

func TestDevice(t *testing.T) {
	d := New()
	defer d.Close()
	scan := bufio.NewScanner(d)

	exchange(t, d, scan, "HOME:", "ACK:HOME", "INFO:Current position set as (0,0)")
	exchange(t, d, scan, "SP:300", "ACK:SP")
	exchange(t, d, scan, "PD:", "ACK:PD")
	exchange(t, d, scan, "PA:100,50", "ACK:PA")
	exchange(t, d, scan, "STATUS:", "STATUS:1058,529,1,255")
	exchange(t, d, scan, "PA:-1,0", "ERR:Target position out of bounds")
	exchange(t, d, scan, "PA:5000,0", "ERR:Target position out of bounds")
	exchange(t, d, scan, "PA:12", "ERR:Invalid PA params")
	exchange(t, d, scan, "BOGUS", "ERR:Invalid command format")
	exchange(t, d, scan, "FOO:", "ERR:Unknown command")
	exchange(t, d, scan, "RESET:", "ACK:RESET", "INFO:Emergency stop - motors disabled, laser off")

	st := d.State()
	assert.Equal(t, State{X: 1058, Y: 529, Power: 255}, st)
	assert.Equal(t, "HOME:", d.Received()[0])
	assert.Len(t, d.Received(), 11)
}

func TestDevice_Hook(t *testing.T) {
	d := New()
	defer d.Close()
	d.Hook = func(line string) ([]string, bool) {
		if line == "PD:" {
			return []string{"ERR:laser fault"}, true
		}
		return nil, false
	}
	scan := bufio.NewScanner(d)

	exchange(t, d, scan, "PD:", "ERR:laser fault")
	exchange(t, d, scan, "PU:", "ACK:PU")
}
