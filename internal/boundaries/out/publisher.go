// Package out defines the output ports of the application.
package out

import (
	"context"

	"github.com/jupyter/overviews/internal/domain"
)

// OverviewPublisher updates the overview of a single registry repository.
// Implementations own authentication and wire format; callers never retry.
type OverviewPublisher interface {
	// Provider returns the provider tag, e.g. "quay".
	Provider() string

	// Publish replaces the overview of req.Destination with req.Content.
	Publish(ctx context.Context, req domain.PublishRequest) error
}
