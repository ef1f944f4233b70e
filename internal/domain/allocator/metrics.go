package allocator

import "time"

// Allocation outcomes reported to the Recorder.
const (
	OutcomeSuccess         = "success"
	OutcomeAlreadyAssigned = "already_assigned"
	OutcomeNoSequence      = "no_eligible_sequence"
	OutcomeUnavailable     = "sequence_unavailable"
	OutcomeDepleted        = "sequence_depleted"
	OutcomeIntegrity       = "integrity_violation"
	OutcomeError           = "error"
)

// Recorder receives allocation metrics.
type Recorder interface {
	ObserveAllocation(outcome string, d time.Duration)
	IncRetry()
}

type nopRecorder struct{}

func (nopRecorder) ObserveAllocation(string, time.Duration) {}
func (nopRecorder) IncRetry()                               {}
