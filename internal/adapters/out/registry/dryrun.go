package registry

import (
	"context"
	"fmt"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/logging"
)

// Ensure DryRun implements out.OverviewPublisher.
var _ out.OverviewPublisher = (*DryRun)(nil)

// DryRun validates requests and logs what would be published without
// calling the registry.
type DryRun struct {
	provider string
	log      zerowrap.Logger
}

// NewDryRun creates a dry-run publisher reporting the given provider tag.
func NewDryRun(provider string, log zerowrap.Logger) *DryRun {
	return &DryRun{provider: provider, log: log}
}

// Provider returns the provider tag of the publisher it stands in for.
func (d *DryRun) Provider() string {
	return d.provider
}

// Publish applies the provider's own content checks and logs the request.
func (d *DryRun) Publish(_ context.Context, req domain.PublishRequest) error {
	if _, err := parseDestination(req.Destination); err != nil {
		return err
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmptyContent, req.SourcePath)
	}
	if d.provider == ProviderDockerHub {
		if err := checkDockerHubSize(req); err != nil {
			return err
		}
	}

	d.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "dryrun").
		Str(logging.FieldProvider, d.provider).
		Str(logging.FieldDestination, req.Destination).
		Str(zerowrap.FieldPath, req.SourcePath).
		Int("bytes", len(req.Content)).
		Msg("dry run: overview not published")

	return nil
}
