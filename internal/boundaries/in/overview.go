// Package in defines the input ports of the application.
package in

import (
	"context"

	"github.com/jupyter/overviews/internal/domain"
)

// OverviewService defines the contract for synchronizing registry overviews.
type OverviewService interface {
	// EnumerateTargets returns the configured targets in declaration order.
	EnumerateTargets() []domain.Target

	// Evaluate decides whether a trigger context should run and is authorized.
	Evaluate(tc domain.TriggerContext) domain.Decision

	// Sync publishes every target's overview when the trigger context allows it.
	Sync(ctx context.Context, tc domain.TriggerContext) (*domain.Report, error)
}
