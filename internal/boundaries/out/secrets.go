package out

import (
	"context"

	"github.com/jupyter/overviews/internal/domain"
)

// SecretProvider defines the contract for retrieving secrets.
type SecretProvider interface {
	// Name returns the provider name (e.g., "env", "pass").
	Name() string

	// GetSecret retrieves a secret by key.
	GetSecret(ctx context.Context, key string) (domain.Secret, error)

	// IsAvailable checks if this provider is available in the current environment.
	IsAvailable() bool
}
