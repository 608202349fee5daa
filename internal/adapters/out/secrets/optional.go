package secrets

import (
	"context"
	"errors"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// Ensure OptionalProvider implements out.SecretProvider.
var _ out.SecretProvider = (*OptionalProvider)(nil)

// OptionalProvider returns an empty secret instead of ErrSecretNotFound.
// Dry runs use it so a missing credential does not stop validation.
type OptionalProvider struct {
	next out.SecretProvider
	log  zerowrap.Logger
}

// NewOptionalProvider wraps next.
func NewOptionalProvider(next out.SecretProvider, log zerowrap.Logger) *OptionalProvider {
	return &OptionalProvider{next: next, log: log}
}

// Name returns the wrapped provider name.
func (o *OptionalProvider) Name() string {
	return o.next.Name()
}

// GetSecret returns the wrapped secret, or an empty one when it is missing.
func (o *OptionalProvider) GetSecret(ctx context.Context, key string) (domain.Secret, error) {
	secret, err := o.next.GetSecret(ctx, key)
	if errors.Is(err, domain.ErrSecretNotFound) {
		o.log.Warn().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "secrets").
			Str("key", key).
			Msg("secret not found, continuing without credential")
		return domain.Secret{}, nil
	}
	return secret, err
}

// IsAvailable reports the wrapped provider availability.
func (o *OptionalProvider) IsAvailable() bool {
	return o.next.IsAvailable()
}
