// Package overview implements the registry overview sync use case.
package overview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/sync/errgroup"

	"github.com/jupyter/overviews/internal/boundaries/in"
	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/logging"
	"github.com/jupyter/overviews/internal/usecase/trigger"
	"github.com/jupyter/overviews/pkg/validation"
)

// DefaultTimeout is the wall-clock budget of a whole batch.
const DefaultTimeout = time.Minute

// Ensure Service implements in.OverviewService.
var _ in.OverviewService = (*Service)(nil)

// Options configures a Service.
type Options struct {
	Layout  domain.Layout
	Targets []domain.Target
	// Owner replaces the repository owner in destinations when set.
	Owner     string
	SecretKey string
	Timeout   time.Duration
	// Parallelism caps concurrent publishes; zero means no cap.
	Parallelism int
	// FailFast cancels the remaining targets after the first failure.
	FailFast bool
}

// Service implements the OverviewService interface.
type Service struct {
	policy    *trigger.Policy
	publisher out.OverviewPublisher
	content   out.ContentReader
	secrets   out.SecretProvider
	metrics   out.MetricsRecorder
	opts      Options
}

// NewService creates a new overview service. Target names are validated up
// front so a bad declaration fails before any event is evaluated.
func NewService(
	policy *trigger.Policy,
	publisher out.OverviewPublisher,
	content out.ContentReader,
	secrets out.SecretProvider,
	metrics out.MetricsRecorder,
	opts Options,
) (*Service, error) {
	if len(opts.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets declared", domain.ErrInvalidTarget)
	}
	for _, t := range opts.Targets {
		if err := validation.ValidateImageName(t.Name); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidTarget, t.Name, err)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.Targets = slices.Clone(opts.Targets)

	return &Service{
		policy:    policy,
		publisher: publisher,
		content:   content,
		secrets:   secrets,
		metrics:   metrics,
		opts:      opts,
	}, nil
}

// EnumerateTargets returns the declared targets in declaration order.
func (s *Service) EnumerateTargets() []domain.Target {
	return slices.Clone(s.opts.Targets)
}

// Evaluate decides whether the trigger context runs and is authorized.
func (s *Service) Evaluate(tc domain.TriggerContext) domain.Decision {
	return s.policy.Evaluate(tc)
}

// Sync publishes the overview of every target when the trigger context
// matches and its owner is allowed. A gated-off run is not an error: it
// returns a report with no outcomes.
func (s *Service) Sync(ctx context.Context, tc domain.TriggerContext) (*domain.Report, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Sync",
		"event":               string(tc.Kind),
		"branch":              tc.Branch,
		"owner":               tc.Owner,
	})
	log := zerowrap.FromCtx(ctx)

	report := &domain.Report{Decision: s.Evaluate(tc)}
	if !report.Decision.Proceed() {
		log.Info().
			Str("code", string(report.Decision.Code)).
			Str("reason", report.Decision.Reason).
			Msg("skipping overview sync")
		if s.metrics != nil {
			s.metrics.RecordSkip(ctx, report.Decision.Code)
		}
		return report, nil
	}

	credential, err := s.secrets.GetSecret(ctx, s.opts.SecretKey)
	if err != nil {
		return report, log.WrapErr(err, "failed to resolve registry credential")
	}

	owner := s.owner(tc)
	targets := s.EnumerateTargets()
	log.Info().
		Int(zerowrap.FieldCount, len(targets)).
		Str(logging.FieldProvider, s.publisher.Provider()).
		Dur("timeout", s.opts.Timeout).
		Msg("syncing overviews")

	var timedOut bool
	report.Outcomes, timedOut = s.runBatch(ctx, targets, owner, credential)

	if err := s.batchError(ctx, report, timedOut); err != nil {
		log.Error().
			Err(err).
			Int("succeeded", len(report.Succeeded())).
			Int("failed", len(report.Failed())).
			Int("abandoned", len(report.Abandoned())).
			Msg("overview sync finished with errors")
		return report, err
	}

	log.Info().Int("succeeded", len(report.Succeeded())).Msg("overview sync finished")
	return report, nil
}

// Run publishes the overview of a single target. It never retries; the
// outcome mirrors whatever the publisher returned.
func (s *Service) Run(ctx context.Context, target domain.Target, owner string, credential domain.Secret) domain.Outcome {
	start := time.Now()
	outcome := domain.Outcome{
		Target:      target,
		Destination: target.Destination(s.opts.Layout, owner),
		SourcePath:  target.SourcePath(s.opts.Layout),
	}

	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		logging.FieldTarget:      target.Name,
		logging.FieldDestination: outcome.Destination,
	})
	log := zerowrap.FromCtx(ctx)

	err := s.publish(ctx, outcome, credential)
	outcome.Duration = time.Since(start)

	switch {
	case err == nil:
		outcome.Status = domain.StatusSucceeded
		log.Info().Dur(zerowrap.FieldDuration, outcome.Duration).Msg("overview published")
	case ctx.Err() != nil:
		outcome.Status = domain.StatusAbandoned
		outcome.Err = err
		log.Warn().Err(err).Msg("overview abandoned")
	default:
		outcome.Status = domain.StatusFailed
		outcome.Err = err
		log.Error().Err(err).Msg("overview publish failed")
	}

	if s.metrics != nil {
		s.metrics.RecordPublish(ctx, s.publisher.Provider(), outcome.Status, outcome.Duration)
	}

	return outcome
}

func (s *Service) publish(ctx context.Context, outcome domain.Outcome, credential domain.Secret) error {
	content, err := s.content.ReadContent(ctx, outcome.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", outcome.SourcePath, err)
	}

	return s.publisher.Publish(ctx, domain.PublishRequest{
		Target:      outcome.Target,
		Destination: outcome.Destination,
		Provider:    s.publisher.Provider(),
		SourcePath:  outcome.SourcePath,
		Content:     content,
		Credential:  credential,
	})
}

// runBatch runs every target under the batch deadline. Outcomes keep the
// declaration order; targets that did not finish in time are abandoned.
func (s *Service) runBatch(ctx context.Context, targets []domain.Target, owner string, credential domain.Secret) ([]domain.Outcome, bool) {
	batchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	pending := make([]domain.Outcome, len(targets))
	for i, t := range targets {
		pending[i] = domain.Outcome{
			Target:      t,
			Destination: t.Destination(s.opts.Layout, owner),
			SourcePath:  t.SourcePath(s.opts.Layout),
		}
	}
	results := newResults(pending)

	var g *errgroup.Group
	runCtx := batchCtx
	if s.opts.FailFast {
		g, runCtx = errgroup.WithContext(batchCtx)
	} else {
		g = &errgroup.Group{}
	}
	if s.opts.Parallelism > 0 {
		g.SetLimit(s.opts.Parallelism)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, target := range targets {
			g.Go(func() error {
				if runCtx.Err() != nil {
					return nil
				}
				outcome := s.Run(runCtx, target, owner, credential)
				results.record(i, outcome)
				if outcome.Status == domain.StatusFailed {
					return outcome.Err
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
	}

	outcomes := results.seal(batchCtx.Err())
	timedOut := ctx.Err() == nil && errors.Is(batchCtx.Err(), context.DeadlineExceeded)
	return outcomes, timedOut
}

func (s *Service) batchError(ctx context.Context, report *domain.Report, timedOut bool) error {
	var errs []error

	// Without a timeout or interruption, abandoned targets were cancelled by a
	// fail-fast failure that is reported below.
	if abandoned := report.Abandoned(); len(abandoned) > 0 {
		switch {
		case ctx.Err() != nil:
			errs = append(errs, fmt.Errorf("overview sync interrupted: %w", ctx.Err()))
		case timedOut:
			errs = append(errs, fmt.Errorf("%w after %s: %d of %d targets abandoned: %s",
				domain.ErrBatchTimeout, s.opts.Timeout, len(abandoned), len(report.Outcomes), names(abandoned)))
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", domain.ErrPublishFailed, names(failed)))
	}

	return errors.Join(errs...)
}

func (s *Service) owner(tc domain.TriggerContext) string {
	if s.opts.Owner != "" {
		return s.opts.Owner
	}
	return tc.Owner
}

func names(outcomes []domain.Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, o.Target.Name)
	}
	return strings.Join(parts, ", ")
}

// results collects outcomes written by concurrent publishes. Once sealed,
// late writes from goroutines that outlived the deadline are dropped.
type results struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	done     []bool
	sealed   bool
}

func newResults(pending []domain.Outcome) *results {
	return &results{
		outcomes: pending,
		done:     make([]bool, len(pending)),
	}
}

func (r *results) record(i int, o domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return
	}
	r.outcomes[i] = o
	r.done[i] = true
}

func (r *results) seal(cause error) []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	out := make([]domain.Outcome, len(r.outcomes))
	for i, o := range r.outcomes {
		if !r.done[i] {
			o.Status = domain.StatusAbandoned
			o.Err = cause
			if o.Err == nil {
				o.Err = context.Canceled
			}
		}
		out[i] = o
	}
	return out
}
