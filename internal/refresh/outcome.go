package refresh

// Outcome reports what a Refresh call did.
type Outcome string

const (
	// OutcomeRefreshed means the descriptor was parsed and the entity updated.
	OutcomeRefreshed Outcome = "refreshed"
	// OutcomeSkipped means no descriptor exists; nothing changed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCancelled means the caller aborted before the entity changed.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed means the descriptor could not be parsed; nothing changed.
	OutcomeFailed Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }

// Changed reports whether the entity was mutated.
func (o Outcome) Changed() bool { return o == OutcomeRefreshed }
