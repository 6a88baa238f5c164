package job

// Event is sent on a job's event channel. It is one of
// Progress, Status, StateChange or Finished.
type Event interface {
	Job() string
}

// Progress is the rounded percentage of commands that completed a round trip.
type Progress struct {
	JobID   string `json:"job"`
	Percent int    `json:"percent"`
}

// Status is a human readable note. Err is set for failures the job absorbed.
type Status struct {
	JobID   string `json:"job"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type StateChange struct {
	JobID string `json:"job"`
	State State  `json:"state"`
}

// Finished is always the last event before the channel is closed.
type Finished struct {
	JobID   string `json:"job"`
	Stopped bool   `json:"stopped"`
}

func (e Progress) Job() string    { return e.JobID }
func (e Status) Job() string      { return e.JobID }
func (e StateChange) Job() string { return e.JobID }
func (e Finished) Job() string    { return e.JobID }

// EventType names an event for serialization.
func EventType(e Event) string {
	switch e.(type) {
	case Progress:
		return "progress"
	case Status:
		return "status"
	case StateChange:
		return "state"
	case Finished:
		return "finished"
	}
	return "unknown"
}
