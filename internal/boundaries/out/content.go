package out

import "context"

// ContentReader reads overview sources from the local checkout.
type ContentReader interface {
	// ReadContent returns the content of a slash-separated path relative to the
	// repository root.
	ReadContent(ctx context.Context, path string) ([]byte, error)
}

// ChangeDetector lists the files changed between two commits.
type ChangeDetector interface {
	ChangedPaths(ctx context.Context, from, to string) ([]string, error)
}
