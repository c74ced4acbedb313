package model

// OutcomeKind tags the result of a single LLM classification call.
type OutcomeKind int

const (
	// OutcomeSuccess means the call returned usable text.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeBlocked means the model refused to answer.
	OutcomeBlocked
	// OutcomeEmpty means the call succeeded but produced no text.
	OutcomeEmpty
	// OutcomeRetryable means the call failed transiently (timeout, rate
	// limit, server error) and may be attempted again.
	OutcomeRetryable
	// OutcomeFatal means the call failed permanently (auth, permission)
	// and must not be retried.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeEmpty:
		return "empty"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassificationOutcome is the tagged result of one LLM call. The retry loop
// branches on Kind rather than on provider-specific error types.
type ClassificationOutcome struct {
	Kind   OutcomeKind
	Text   string // trimmed response text, set for OutcomeSuccess
	Detail string // refusal reason or failure description
}
