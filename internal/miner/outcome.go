package miner

// Outcome classifies the result of a best-effort operation against the host. None of
// the failure outcomes is fatal to the plugin; they tell the caller whether trying
// again later can help.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeUnsupported: the host does not provide the capability.
	OutcomeUnsupported
	// OutcomeRetryable: the operation failed and the next tick will try again.
	OutcomeRetryable
	// OutcomeFatal: the operation failed and was abandoned.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (o Outcome) Failed() bool { return o == OutcomeRetryable || o == OutcomeFatal }
