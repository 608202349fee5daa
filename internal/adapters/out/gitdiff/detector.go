// Package gitdiff detects changed paths between two commits of a local git
// checkout.
package gitdiff

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jupyter/overviews/internal/boundaries/out"
)

// Ensure Detector implements out.ChangeDetector.
var _ out.ChangeDetector = (*Detector)(nil)

// Detector diffs commit trees of a git repository.
type Detector struct {
	repo *git.Repository
	log  zerowrap.Logger
}

// NewDetector opens the repository containing path.
func NewDetector(path string, log zerowrap.Logger) (*Detector, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return NewDetectorFromRepo(repo, log), nil
}

// NewDetectorFromRepo wraps an already opened repository.
func NewDetectorFromRepo(repo *git.Repository, log zerowrap.Logger) *Detector {
	return &Detector{repo: repo, log: log}
}

// ChangedPaths returns the sorted, de-duplicated paths that differ between
// the trees of from and to. Renames report both names. An empty or all-zero
// from (a newly created branch) compares against the first parent of to, or
// against an empty tree for a root commit.
func (d *Detector) ChangedPaths(ctx context.Context, from, to string) ([]string, error) {
	toCommit, err := d.commit(to)
	if err != nil {
		return nil, err
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", to, err)
	}

	fromTree, err := d.baseTree(from, toCommit)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", from, to, err)
	}

	paths := make([]string, 0, len(changes)*2)
	for _, change := range changes {
		if change.From.Name != "" {
			paths = append(paths, change.From.Name)
		}
		if change.To.Name != "" {
			paths = append(paths, change.To.Name)
		}
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	d.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "gitdiff").
		Str("from", from).
		Str("to", to).
		Int(zerowrap.FieldCount, len(paths)).
		Msg("computed changed paths")

	return paths, nil
}

func (d *Detector) commit(rev string) (*object.Commit, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := d.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %s: %w", rev, err)
	}
	c, err := d.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return c, nil
}

func (d *Detector) baseTree(from string, to *object.Commit) (*object.Tree, error) {
	if strings.Trim(from, "0") != "" {
		c, err := d.commit(from)
		if err != nil {
			return nil, err
		}
		return c.Tree()
	}

	// A nil tree diffs as empty.
	if to.NumParents() == 0 {
		return nil, nil
	}
	parent, err := to.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent of %s: %w", to.Hash, err)
	}
	return parent.Tree()
}
