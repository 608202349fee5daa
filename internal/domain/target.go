package domain

import (
	"path"
	"strings"
)

// Defaults for the overview destination and source templates.
const (
	DefaultRegistry   = "quay.io"
	DefaultImagesDir  = "images"
	DefaultReadmeFile = "README.md"
)

// DefaultTargets is the ordered list of images whose overviews are synchronized.
var DefaultTargets = []string{
	"docker-stacks-foundation",
	"base-notebook",
	"minimal-notebook",
	"scipy-notebook",
	"r-notebook",
	"julia-notebook",
	"tensorflow-notebook",
	"pytorch-notebook",
	"datascience-notebook",
	"pyspark-notebook",
	"all-spark-notebook",
}

// Target is one image whose README is published as its registry overview.
type Target struct {
	Name string
}

// Layout holds the fixed parts of the destination and source templates.
type Layout struct {
	Registry   string
	ImagesDir  string
	ReadmeFile string
}

// DefaultLayout returns the layout used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{
		Registry:   DefaultRegistry,
		ImagesDir:  DefaultImagesDir,
		ReadmeFile: DefaultReadmeFile,
	}
}

// Destination returns the registry repository for the target,
// e.g. "quay.io/jupyter/base-notebook".
func (t Target) Destination(l Layout, owner string) string {
	return strings.Join([]string{l.Registry, owner, t.Name}, "/")
}

// SourcePath returns the slash-separated path of the README relative to the
// repository root, e.g. "images/base-notebook/README.md".
func (t Target) SourcePath(l Layout) string {
	return path.Join(l.ImagesDir, t.Name, l.ReadmeFile)
}

func (t Target) String() string {
	return t.Name
}

// TargetsFromNames builds targets preserving declaration order.
func TargetsFromNames(names []string) []Target {
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, Target{Name: name})
	}
	return targets
}
