package domain

import "time"

// PublishRequest is everything a provider needs to update one overview.
type PublishRequest struct {
	Target      Target
	Destination string
	Provider    string
	SourcePath  string
	Content     []byte
	Credential  Secret
}

// OutcomeStatus describes how a single target ended.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
	StatusAbandoned OutcomeStatus = "abandoned"
)

// Outcome records the result of publishing one target.
type Outcome struct {
	Target      Target
	Destination string
	SourcePath  string
	Status      OutcomeStatus
	Err         error
	Duration    time.Duration
}

// Report summarizes one invocation.
type Report struct {
	Decision Decision
	Outcomes []Outcome
}

// Succeeded returns the outcomes that published successfully.
func (r *Report) Succeeded() []Outcome {
	return r.filter(StatusSucceeded)
}

// Failed returns the outcomes whose publish call failed.
func (r *Report) Failed() []Outcome {
	return r.filter(StatusFailed)
}

// Abandoned returns the outcomes that never finished before the batch deadline.
func (r *Report) Abandoned() []Outcome {
	return r.filter(StatusAbandoned)
}

// Skipped reports whether the run was gated off before any target ran.
func (r *Report) Skipped() bool {
	return !r.Decision.Proceed()
}

func (r *Report) filter(status OutcomeStatus) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
