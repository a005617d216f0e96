package publisher

// State is a publishing job state.
type State int

// Job states in the order a successful job passes them.
const (
	StateInit State = iota
	StateQueued
	StateAuthenticating
	StateProcessingBatch
	StateRowLoop
	StateBatchDone
	StateComplete
	StateFailed
)

var stateNames = map[State]string{
	StateInit:            "init",
	StateQueued:          "queued",
	StateAuthenticating:  "authenticating",
	StateProcessingBatch: "processing_batch",
	StateRowLoop:         "row_loop",
	StateBatchDone:       "batch_done",
	StateComplete:        "complete",
	StateFailed:          "failed",
}

// String returns state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Outcome is the result of a single row.
type Outcome int

// Row outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeUnconfirmed
	OutcomePublished
)

// Stats counts row outcomes of a job.
type Stats struct {
	Published   int32
	Unconfirmed int32
	Failed      int32
	Skipped     int32
}

// Attempted returns number of rows attempted by the job.
func (s Stats) Attempted() int32 {
	return s.Published + s.Unconfirmed + s.Failed
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomePublished:
		s.Published++
	case OutcomeUnconfirmed:
		s.Unconfirmed++
	default:
		s.Failed++
	}
}
