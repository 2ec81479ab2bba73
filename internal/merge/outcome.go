package merge

// Outcome is the three-valued result of reconciling one fetched record.
// The circuit breaker counts outcomes, never errors.
type Outcome int

// Reconciliation outcomes.
const (
	OutcomeSkipped Outcome = iota
	OutcomeUpdated
	OutcomeCreated
)

// String names the outcome for logs and metrics labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Changed reports whether the record was newly created or materially
// updated.
func (o Outcome) Changed() bool {
	return o == OutcomeCreated || o == OutcomeUpdated
}
