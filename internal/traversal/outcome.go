package traversal

// Outcome is the terminal result of one application attempt.
type Outcome string

const (
	OutcomeApplied               Outcome = "applied"
	OutcomeAlreadyApplied        Outcome = "already_applied"
	OutcomeMandatoryTest         Outcome = "mandatory_test"
	OutcomeMandatoryTestRedirect Outcome = "mandatory_test_redirect"
	OutcomeCoverLetterFailed     Outcome = "cover_letter_failed"
	OutcomeSubmitFailed          Outcome = "submit_failed"
	OutcomeError                 Outcome = "error"
)

// ReasonNotSuitable is recorded when a title matches none of the query keywords.
const ReasonNotSuitable = "not_suitable_keywords"

// Attempt is what the driver reports back for one card.
type Attempt struct {
	Outcome     Outcome
	Detail      string
	CoverLetter bool
}

// Processed reports whether the outcome belongs in the processed partition.
func (a Attempt) Processed() bool {
	return a.Outcome == OutcomeApplied || a.Outcome == OutcomeAlreadyApplied
}

// Reason is the ledger reason for skipped outcomes, e.g. "error: timeout".
func (a Attempt) Reason() string {
	if a.Outcome == OutcomeError {
		if a.Detail == "" {
			return string(OutcomeError)
		}
		return string(OutcomeError) + ": " + a.Detail
	}
	return string(a.Outcome)
}

// Failed builds an error attempt with a detail message.
func Failed(detail string) Attempt {
	return Attempt{Outcome: OutcomeError, Detail: detail}
}
