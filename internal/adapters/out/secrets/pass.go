// Package secrets implements secret provider adapters.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Ensure PassProvider implements out.SecretProvider.
var _ out.SecretProvider = (*PassProvider)(nil)

// secretPathRegex allows only characters that are safe to hand to the pass CLI.
var secretPathRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// ValidatePath rejects secret paths that could escape the password store or
// inject arguments into the pass command.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("invalid path: empty")
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "-") {
		return fmt.Errorf("invalid path: %q", path)
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", domain.ErrPathTraversal, path)
		}
	}
	if !secretPathRegex.MatchString(path) {
		return fmt.Errorf("invalid path: %q contains forbidden characters", path)
	}
	return nil
}

// PassProvider implements the SecretProvider interface using the pass password manager.
type PassProvider struct {
	timeout time.Duration
	log     zerowrap.Logger
}

// NewPassProvider creates a new pass provider.
func NewPassProvider(log zerowrap.Logger) *PassProvider {
	return &PassProvider{
		timeout: 10 * time.Second,
		log:     log,
	}
}

// Name returns the provider name.
func (p *PassProvider) Name() string {
	return "pass"
}

// GetSecret retrieves a secret from pass by path.
func (p *PassProvider) GetSecret(ctx context.Context, path string) (domain.Secret, error) {
	if err := ValidatePath(path); err != nil {
		return domain.Secret{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pass", "show", path)
	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return domain.Secret{}, fmt.Errorf("%w: pass: %s", domain.ErrSecretNotFound, strings.TrimSpace(string(exitError.Stderr)))
		}
		return domain.Secret{}, fmt.Errorf("failed to execute pass command: %w", err)
	}

	// pass stores the secret on the first line; following lines are metadata.
	secret, _, _ := strings.Cut(string(output), "\n")
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return domain.Secret{}, fmt.Errorf("%w: empty secret returned from pass for path: %s", domain.ErrSecretNotFound, path)
	}

	p.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "secrets").
		Str("provider", "pass").
		Str(zerowrap.FieldPath, path).
		Msg("successfully retrieved secret from pass")

	return domain.NewSecret(secret), nil
}

// IsAvailable checks if pass is available in the system.
func (p *PassProvider) IsAvailable() bool {
	_, err := exec.LookPath("pass")
	return err == nil
}
