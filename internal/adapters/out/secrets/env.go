package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Ensure EnvProvider implements out.SecretProvider.
var _ out.SecretProvider = (*EnvProvider)(nil)

// EnvProvider reads secrets from environment variables, the way CI platforms
// expose repository secrets to jobs.
type EnvProvider struct {
	lookup func(string) (string, bool)
	log    zerowrap.Logger
}

// NewEnvProvider creates a provider over the process environment.
func NewEnvProvider(log zerowrap.Logger) *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv, log: log}
}

// Name returns the provider name.
func (e *EnvProvider) Name() string {
	return "env"
}

// GetSecret returns the value of the environment variable named key.
func (e *EnvProvider) GetSecret(_ context.Context, key string) (domain.Secret, error) {
	value, ok := e.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return domain.Secret{}, fmt.Errorf("%w: environment variable %s is not set", domain.ErrSecretNotFound, key)
	}

	e.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "secrets").
		Str("provider", "env").
		Str("key", key).
		Msg("secret read from environment")

	return domain.NewSecret(strings.TrimSpace(value)), nil
}

// IsAvailable always reports true; the environment always exists.
func (e *EnvProvider) IsAvailable() bool {
	return true
}
