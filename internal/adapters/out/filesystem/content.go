// Package filesystem implements the content reader over the repository checkout.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/pkg/validation"
)

// MaxContentSize bounds how much of a README is read into memory.
const MaxContentSize = 1 << 20

// Ensure ContentReader implements out.ContentReader.
var _ out.ContentReader = (*ContentReader)(nil)

// ContentReader reads overview sources relative to a repository root.
type ContentReader struct {
	fs      afero.Fs
	rootDir string
	log     zerowrap.Logger
}

// NewContentReader creates a reader over the OS filesystem rooted at rootDir.
func NewContentReader(rootDir string, log zerowrap.Logger) *ContentReader {
	return NewContentReaderFs(afero.NewOsFs(), rootDir, log)
}

// NewContentReaderFs creates a reader over any afero filesystem.
func NewContentReaderFs(fsys afero.Fs, rootDir string, log zerowrap.Logger) *ContentReader {
	return &ContentReader{
		fs:      fsys,
		rootDir: filepath.Clean(rootDir),
		log:     log,
	}
}

// ReadContent reads a slash-separated path relative to the repository root.
func (r *ContentReader) ReadContent(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := validation.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPathTraversal, path, err)
	}

	fullPath := filepath.Join(r.rootDir, filepath.FromSlash(clean))
	if err := validation.ValidatePathWithinRoot(r.rootDir, fullPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPathTraversal, path, err)
	}

	info, err := r.fs.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrContentNotFound, path)
	}
	if info.Size() > MaxContentSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrContentTooLarge, path, info.Size())
	}

	data, err := afero.ReadFile(r.fs, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyContent, path)
	}

	r.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "filesystem").
		Str(zerowrap.FieldPath, clean).
		Int("bytes", len(data)).
		Msg("overview content read")

	return data, nil
}
