package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupyter/overviews/internal/domain"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errType error
	}{
		// Valid paths
		{name: "simple path", path: "registry/quay-robot-token"},
		{name: "path with dots in name", path: "quay.robot.token"},
		{name: "path with underscores", path: "ci/QUAY_ROBOT_TOKEN"},
		{name: "nested path", path: "org/team/app/secret"},

		// Invalid paths - path traversal
		{name: "path traversal with double dots", path: "../../../etc/passwd", wantErr: true, errType: domain.ErrPathTraversal},
		{name: "path traversal in middle", path: "foo/../../../etc/passwd", wantErr: true, errType: domain.ErrPathTraversal},
		{name: "path traversal at end", path: "foo/bar/..", wantErr: true, errType: domain.ErrPathTraversal},

		// Invalid paths - absolute paths and flags
		{name: "absolute path", path: "/etc/passwd", wantErr: true},
		{name: "flag injection", path: "--help", wantErr: true},

		// Invalid paths - special characters (command injection)
		{name: "semicolon injection", path: "secret;rm -rf /", wantErr: true},
		{name: "dollar injection", path: "secret$(whoami)", wantErr: true},
		{name: "newline injection", path: "secret\nrm -rf /", wantErr: true},
		{name: "space in path", path: "secret with space", wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)

			if tt.wantErr {
				require.Error(t, err, "expected error for path: %q", tt.path)
				if tt.errType != nil {
					assert.True(t, errors.Is(err, tt.errType), "expected error type %v, got %v", tt.errType, err)
				}
			} else {
				assert.NoError(t, err, "unexpected error for path: %q", tt.path)
			}
		})
	}
}

func TestPassProvider_GetSecret_PathValidation(t *testing.T) {
	provider := NewPassProvider(zerowrap.New(zerowrap.Config{Level: "disabled"}))

	_, err := provider.GetSecret(context.Background(), "../../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrPathTraversal)

	_, err = provider.GetSecret(context.Background(), "secret;whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid path")

	assert.Equal(t, "pass", provider.Name())
}
