package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupyter/overviews/internal/domain"
)

func newMemReader(t *testing.T, files map[string]string) *ContentReader {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join("/repo", filepath.FromSlash(path)), []byte(content), 0644))
	}
	return NewContentReaderFs(fsys, "/repo", zerowrap.New(zerowrap.Config{Level: "disabled"}))
}

func TestContentReader_ReadContent(t *testing.T) {
	reader := newMemReader(t, map[string]string{
		"images/base-notebook/README.md": "# Base Jupyter Notebook Stack",
		"images/empty/README.md":         "",
		"images/huge/README.md":          strings.Repeat("x", MaxContentSize+1),
		"secrets.txt":                    "do not publish",
	})

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "readme", path: "images/base-notebook/README.md", want: "# Base Jupyter Notebook Stack"},
		{name: "missing", path: "images/scipy-notebook/README.md", wantErr: domain.ErrContentNotFound},
		{name: "directory", path: "images/base-notebook", wantErr: domain.ErrContentNotFound},
		{name: "empty", path: "images/empty/README.md", wantErr: domain.ErrEmptyContent},
		{name: "too large", path: "images/huge/README.md", wantErr: domain.ErrContentTooLarge},
		{name: "traversal", path: "../etc/passwd", wantErr: domain.ErrPathTraversal},
		{name: "absolute", path: "/etc/passwd", wantErr: domain.ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reader.ReadContent(context.Background(), tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestContentReader_CancelledContext(t *testing.T) {
	reader := newMemReader(t, map[string]string{"images/base-notebook/README.md": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reader.ReadContent(ctx, "images/base-notebook/README.md")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContentReader_OsFs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images", "r-notebook")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# R"), 0644))

	reader := NewContentReader(root, zerowrap.New(zerowrap.Config{Level: "disabled"}))

	got, err := reader.ReadContent(context.Background(), "images/r-notebook/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# R", string(got))
}
