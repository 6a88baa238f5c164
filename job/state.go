package job

import (
	"fmt"
	"strconv"
)

// State is the lifecycle of one Job.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateFinished:
		return "finished"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(data []byte) error {
	for st := StateIdle; st <= StateFinished; st++ {
		if st.String() == string(data) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job state %q", data)
}

// Active is true while commands may still be dispatched.
func (s State) Active() bool { return s == StateRunning || s == StatePaused }
