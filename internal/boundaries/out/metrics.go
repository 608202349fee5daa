package out

import (
	"context"
	"time"

	"github.com/jupyter/overviews/internal/domain"
)

// MetricsRecorder records publish activity.
type MetricsRecorder interface {
	RecordPublish(ctx context.Context, provider string, status domain.OutcomeStatus, duration time.Duration)
	RecordSkip(ctx context.Context, code domain.SkipCode)
}
