package secrets

import (
	"context"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupyter/overviews/internal/domain"
)

func TestEnvProvider_GetSecret(t *testing.T) {
	t.Setenv("OVERVIEWS_TEST_QUAY_TOKEN", "  robot-token\n")
	t.Setenv("OVERVIEWS_TEST_EMPTY", "")

	provider := NewEnvProvider(zerowrap.New(zerowrap.Config{Level: "disabled"}))

	secret, err := provider.GetSecret(context.Background(), "OVERVIEWS_TEST_QUAY_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "robot-token", secret.Reveal())

	_, err = provider.GetSecret(context.Background(), "OVERVIEWS_TEST_EMPTY")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)

	_, err = provider.GetSecret(context.Background(), "OVERVIEWS_TEST_MISSING_TOKEN")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)

	assert.Equal(t, "env", provider.Name())
	assert.True(t, provider.IsAvailable())
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("env", zerowrap.New(zerowrap.Config{Level: "disabled"}))
	require.NoError(t, err)
	assert.Equal(t, "env", provider.Name())

	_, err = NewProvider("vault", zerowrap.New(zerowrap.Config{Level: "disabled"}))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOptionalProvider(t *testing.T) {
	t.Setenv("OVERVIEWS_TEST_PRESENT", "token")
	provider := NewOptionalProvider(NewEnvProvider(zerowrap.New(zerowrap.Config{Level: "disabled"})), zerowrap.New(zerowrap.Config{Level: "disabled"}))

	secret, err := provider.GetSecret(context.Background(), "OVERVIEWS_TEST_ABSENT")
	require.NoError(t, err)
	assert.True(t, secret.IsZero())

	secret, err = provider.GetSecret(context.Background(), "OVERVIEWS_TEST_PRESENT")
	require.NoError(t, err)
	assert.Equal(t, "token", secret.Reveal())
	assert.Equal(t, "env", provider.Name())
}
