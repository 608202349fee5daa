// Package ghaction builds trigger contexts from the GitHub Actions runner
// environment.
package ghaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/google/go-github/v72/github"
	"github.com/spf13/afero"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Environment variables set by the Actions runner.
const (
	EnvEventName       = "GITHUB_EVENT_NAME"
	EnvEventPath       = "GITHUB_EVENT_PATH"
	EnvRefName         = "GITHUB_REF_NAME"
	EnvRefType         = "GITHUB_REF_TYPE"
	EnvRepositoryOwner = "GITHUB_REPOSITORY_OWNER"
)

const (
	branchRefPrefix = "refs/heads/"
	refTypeBranch   = "branch"
)

// Loader reads the event name, ref, owner and payload of the current run.
type Loader struct {
	getenv   func(string) string
	fs       afero.Fs
	detector out.ChangeDetector
	log      zerowrap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithGetenv replaces the environment lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(l *Loader) {
		l.getenv = getenv
	}
}

// WithFs replaces the filesystem the event payload is read from.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithChangeDetector sets the fallback used when the payload has no
// per-commit file lists.
func WithChangeDetector(d out.ChangeDetector) Option {
	return func(l *Loader) {
		l.detector = d
	}
}

// NewLoader creates a loader over the process environment.
func NewLoader(log zerowrap.Logger, opts ...Option) *Loader {
	l := &Loader{
		getenv: os.Getenv,
		fs:     afero.NewOsFs(),
		log:    log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Detected reports whether the process runs inside GitHub Actions.
func (l *Loader) Detected() bool {
	return l.getenv(EnvEventName) != ""
}

// Load builds the trigger context of the current run. Event kinds other than
// push and workflow_dispatch are returned as-is; the trigger policy declines
// them.
func (l *Loader) Load(ctx context.Context) (domain.TriggerContext, error) {
	name := l.getenv(EnvEventName)
	if name == "" {
		return domain.TriggerContext{}, fmt.Errorf("%w: %s is not set", domain.ErrUnsupportedEvent, EnvEventName)
	}

	tc := domain.TriggerContext{
		Kind:   domain.EventKind(name),
		Branch: l.getenv(EnvRefName),
		Owner:  l.getenv(EnvRepositoryOwner),
	}
	// A tag shares GITHUB_REF_NAME with branches; it must never pass as one.
	if refType := l.getenv(EnvRefType); refType != "" && refType != refTypeBranch {
		tc.Branch = ""
	}

	payloadPath := l.getenv(EnvEventPath)
	if payloadPath == "" || (tc.Kind != domain.EventPush && tc.Kind != domain.EventManual) {
		return tc, nil
	}

	payload, err := afero.ReadFile(l.fs, payloadPath)
	if err != nil {
		return domain.TriggerContext{}, fmt.Errorf("failed to read event payload %s: %w", payloadPath, err)
	}

	event, err := github.ParseWebHook(name, payload)
	if err != nil {
		return domain.TriggerContext{}, fmt.Errorf("failed to parse %s payload: %w", name, err)
	}

	switch e := event.(type) {
	case *github.PushEvent:
		return l.fromPush(ctx, tc, e)
	case *github.WorkflowDispatchEvent:
		if tc.Branch == "" {
			tc.Branch = branchOf(e.GetRef())
		}
		if tc.Owner == "" {
			tc.Owner = e.GetRepo().GetOwner().GetLogin()
		}
	}

	return tc, nil
}

func (l *Loader) fromPush(ctx context.Context, tc domain.TriggerContext, e *github.PushEvent) (domain.TriggerContext, error) {
	// The payload's full ref is authoritative over the short ref name.
	if ref := e.GetRef(); ref != "" {
		tc.Branch = branchOf(ref)
	}
	if tc.Owner == "" {
		tc.Owner = e.GetRepo().GetOwner().GetLogin()
	}

	paths := PushedPaths(e)
	if len(paths) == 0 && l.detector != nil && e.GetAfter() != "" {
		detected, err := l.detector.ChangedPaths(ctx, e.GetBefore(), e.GetAfter())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return domain.TriggerContext{}, err
			}
			// Without a changed-path list the push is declined by the policy.
			l.log.Warn().
				Err(err).
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "ghaction").
				Msg("failed to detect changed paths from git history")
		} else {
			paths = detected
		}
	}

	l.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "ghaction").
		Str("branch", tc.Branch).
		Str("owner", tc.Owner).
		Int(zerowrap.FieldCount, len(paths)).
		Msg("loaded push event")

	return tc.WithChangedPaths(paths), nil
}

// branchOf returns the branch name of a full ref, or "" for tags and other refs.
func branchOf(ref string) string {
	name, ok := strings.CutPrefix(ref, branchRefPrefix)
	if !ok {
		return ""
	}
	return name
}

// PushedPaths collects the added, modified and removed files of every commit
// in a push, sorted and de-duplicated.
func PushedPaths(e *github.PushEvent) []string {
	commits := e.Commits
	if len(commits) == 0 && e.HeadCommit != nil {
		commits = []*github.HeadCommit{e.HeadCommit}
	}

	var paths []string
	for _, c := range commits {
		if c == nil {
			continue
		}
		paths = append(paths, c.Added...)
		paths = append(paths, c.Modified...)
		paths = append(paths, c.Removed...)
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}
