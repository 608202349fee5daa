package secrets

import (
	"fmt"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// NewProvider returns the secret provider registered under name.
func NewProvider(name string, log zerowrap.Logger) (out.SecretProvider, error) {
	var provider out.SecretProvider
	switch name {
	case "env":
		provider = NewEnvProvider(log)
	case "pass":
		provider = NewPassProvider(log)
	default:
		return nil, fmt.Errorf("%w: unknown secret provider %q", domain.ErrInvalidConfig, name)
	}

	if !provider.IsAvailable() {
		return nil, fmt.Errorf("%w: secret provider %q is not available", domain.ErrInvalidConfig, name)
	}
	return provider, nil
}
