package policy

// Outcome is the coarse result of a policy decision, used for logging and
// metrics.
type Outcome string

const (
	// OutcomeAllow permits the post or command.
	OutcomeAllow Outcome = "allow"
	// OutcomeDeny rejects the post or command.
	OutcomeDeny Outcome = "deny"
)

// OutcomeOf converts a boolean decision into an Outcome.
func OutcomeOf(allowed bool) Outcome {
	if allowed {
		return OutcomeAllow
	}
	return OutcomeDeny
}
