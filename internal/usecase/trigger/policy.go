// Package trigger decides whether an event should sync overviews.
package trigger

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jupyter/overviews/internal/domain"
)

// Default trigger settings.
var (
	DefaultBranch = "main"

	DefaultPaths = []string{
		".github/workflows/registry-overviews.yml",
		"images/*/README.md",
	}

	DefaultAllowedOwners = []string{"jupyter", "mathbunnyru"}
)

// Policy holds the fixed trigger and ownership rules.
type Policy struct {
	branch        string
	paths         []string
	allowedOwners []string
}

// NewPolicy creates a policy after checking that every path pattern is valid.
func NewPolicy(branch string, paths, allowedOwners []string) (*Policy, error) {
	for _, p := range paths {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad path pattern %q", domain.ErrInvalidConfig, p)
		}
	}

	return &Policy{
		branch:        branch,
		paths:         slices.Clone(paths),
		allowedOwners: slices.Clone(allowedOwners),
	}, nil
}

// DefaultPolicy returns the policy of the upstream workflow.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(DefaultBranch, DefaultPaths, DefaultAllowedOwners)
	return p
}

// ShouldRun reports whether the event matches the trigger.
// Manual runs always match. Pushes match only on the configured branch and
// only when at least one changed path matches a pattern.
func (p *Policy) ShouldRun(tc domain.TriggerContext) bool {
	switch tc.Kind {
	case domain.EventManual:
		return true
	case domain.EventPush:
		return tc.Branch == p.branch && p.matchesAny(tc.ChangedPaths)
	default:
		return false
	}
}

// Authorize reports whether the repository owner is allowed to run the sync.
func (p *Policy) Authorize(tc domain.TriggerContext) bool {
	return slices.Contains(p.allowedOwners, tc.Owner)
}

// Evaluate runs both checks and explains the result.
func (p *Policy) Evaluate(tc domain.TriggerContext) domain.Decision {
	d := domain.Decision{
		ShouldRun:  p.ShouldRun(tc),
		Authorized: p.Authorize(tc),
	}

	switch {
	case !d.ShouldRun && tc.Kind != domain.EventPush && tc.Kind != domain.EventManual:
		d.Code = domain.SkipEvent
		d.Reason = fmt.Sprintf("event %q does not trigger a sync", tc.Kind)
	case !d.ShouldRun && tc.Branch != p.branch:
		d.Code = domain.SkipBranch
		d.Reason = fmt.Sprintf("branch %q is not %q", tc.Branch, p.branch)
	case !d.ShouldRun:
		d.Code = domain.SkipPaths
		d.Reason = "no changed path matches the trigger paths"
	case !d.Authorized:
		d.Code = domain.SkipOwner
		d.Reason = fmt.Sprintf("owner %q is not allowed", tc.Owner)
	default:
		d.Reason = "trigger matched"
	}

	return d
}

// Branch returns the branch pushes must target.
func (p *Policy) Branch() string {
	return p.branch
}

// Paths returns the trigger path patterns.
func (p *Policy) Paths() []string {
	return slices.Clone(p.paths)
}

func (p *Policy) matchesAny(changed []string) bool {
	for _, file := range changed {
		for _, pattern := range p.paths {
			// Patterns were validated in NewPolicy, so the error is always nil.
			if ok, _ := doublestar.Match(pattern, file); ok {
				return true
			}
		}
	}
	return false
}
