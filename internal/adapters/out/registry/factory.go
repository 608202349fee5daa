package registry

import (
	"fmt"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
)

// New returns the publisher for a provider tag.
func New(provider, username string, log zerowrap.Logger, opts ...Option) (out.OverviewPublisher, error) {
	switch provider {
	case ProviderQuay:
		return NewQuay(log, opts...), nil
	case ProviderDockerHub:
		if username == "" {
			return nil, fmt.Errorf("%w: docker hub requires a username", domain.ErrInvalidConfig)
		}
		return NewDockerHub(username, log, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, provider)
	}
}
