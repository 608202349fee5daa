package domain

import "fmt"

// EventKind identifies what started a run.
type EventKind string

const (
	// EventPush is an automatic run started by changes pushed to a branch.
	EventPush EventKind = "push"
	// EventManual is a run started by hand (workflow_dispatch).
	EventManual EventKind = "workflow_dispatch"
)

// IsManual reports whether the event was started by hand.
func (k EventKind) IsManual() bool {
	return k == EventManual
}

// TriggerContext carries the event data that gates a run.
// It is passed by value and never mutated once built.
type TriggerContext struct {
	Kind         EventKind
	Branch       string
	ChangedPaths []string
	Owner        string
}

// WithChangedPaths returns a copy of the context with the given paths.
func (c TriggerContext) WithChangedPaths(paths []string) TriggerContext {
	c.ChangedPaths = append([]string(nil), paths...)
	return c
}

// SkipCode classifies why a sync was skipped. The set is closed so it can
// label metrics.
type SkipCode string

const (
	SkipNone   SkipCode = ""
	SkipEvent  SkipCode = "event"
	SkipBranch SkipCode = "branch"
	SkipPaths  SkipCode = "paths"
	SkipOwner  SkipCode = "owner"
)

// Decision is the result of evaluating a trigger context.
type Decision struct {
	ShouldRun  bool
	Authorized bool
	Code       SkipCode
	Reason     string
}

// Proceed reports whether targets should be processed.
func (d Decision) Proceed() bool {
	return d.ShouldRun && d.Authorized
}

// Err returns nil when the decision proceeds, otherwise the reason wrapped
// in ErrTriggerMismatch or ErrUnauthorized.
func (d Decision) Err() error {
	switch {
	case !d.ShouldRun:
		return fmt.Errorf("%w: %s", ErrTriggerMismatch, d.Reason)
	case !d.Authorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, d.Reason)
	default:
		return nil
	}
}
