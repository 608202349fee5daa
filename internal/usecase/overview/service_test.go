package overview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jupyter/overviews/internal/adapters/out/ratelimit"
	"github.com/jupyter/overviews/internal/boundaries/out/mocks"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/usecase/trigger"
)

// recordingPublisher records every request and delegates to an optional hook.
type recordingPublisher struct {
	mu       sync.Mutex
	requests []domain.PublishRequest
	hook     func(ctx context.Context, req domain.PublishRequest) error
}

func (p *recordingPublisher) Provider() string { return "quay" }

func (p *recordingPublisher) Publish(ctx context.Context, req domain.PublishRequest) error {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.hook != nil {
		return p.hook(ctx, req)
	}
	return nil
}

func (p *recordingPublisher) destinations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.requests))
	for _, r := range p.requests {
		out = append(out, r.Destination)
	}
	return out
}

// staticContent serves README content for any path.
type staticContent struct{}

func (staticContent) ReadContent(_ context.Context, path string) ([]byte, error) {
	return []byte("# " + path), nil
}

func newTestService(t *testing.T, publisher *recordingPublisher, opts Options) *Service {
	t.Helper()

	secrets := mocks.NewMockSecretProvider(t)
	secrets.On("GetSecret", mock.Anything, "QUAY_ROBOT_TOKEN").Return(domain.NewSecret("robot-token"), nil).Maybe()

	if opts.Targets == nil {
		opts.Targets = domain.TargetsFromNames(domain.DefaultTargets)
	}
	if opts.Layout == (domain.Layout{}) {
		opts.Layout = domain.DefaultLayout()
	}
	opts.SecretKey = "QUAY_ROBOT_TOKEN"

	svc, err := NewService(trigger.DefaultPolicy(), publisher, staticContent{}, secrets, nil, opts)
	require.NoError(t, err)
	return svc
}

func readmePush(owner string, paths ...string) domain.TriggerContext {
	return domain.TriggerContext{Kind: domain.EventPush, Branch: "main", ChangedPaths: paths, Owner: owner}
}

func TestService_Sync_PushTouchingReadme(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := newTestService(t, publisher, Options{})

	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 11)
	assert.Len(t, report.Succeeded(), 11)
	assert.False(t, report.Skipped())

	want := make([]string, 0, len(domain.DefaultTargets))
	for i, name := range domain.DefaultTargets {
		want = append(want, "quay.io/jupyter/"+name)
		assert.Equal(t, name, report.Outcomes[i].Target.Name)
		assert.Equal(t, "quay.io/jupyter/"+name, report.Outcomes[i].Destination)
		assert.Equal(t, "images/"+name+"/README.md", report.Outcomes[i].SourcePath)
	}
	assert.ElementsMatch(t, want, publisher.destinations())

	for _, req := range publisher.requests {
		assert.Equal(t, "quay", req.Provider)
		assert.Equal(t, "robot-token", req.Credential.Reveal())
		assert.Equal(t, "# images/"+req.Target.Name+"/README.md", string(req.Content))
	}
}

func TestService_Sync_WorkflowChangeByFork(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := newTestService(t, publisher, Options{})

	report, err := svc.Sync(context.Background(), readmePush("mathbunnyru", ".github/workflows/registry-overviews.yml"))
	require.NoError(t, err)

	assert.Len(t, report.Succeeded(), 11)
	for _, d := range publisher.destinations() {
		assert.Regexp(t, `^quay\.io/mathbunnyru/`, d)
	}
}

func TestService_Sync_Skips(t *testing.T) {
	tests := []struct {
		name string
		tc   domain.TriggerContext
		code domain.SkipCode
	}{
		{"unrelated file", readmePush("jupyter", "README.md"), domain.SkipPaths},
		{"other branch", domain.TriggerContext{Kind: domain.EventPush, Branch: "dev", ChangedPaths: []string{"images/base-notebook/README.md"}, Owner: "jupyter"}, domain.SkipBranch},
		{"manual dispatch by unknown owner", domain.TriggerContext{Kind: domain.EventManual, Owner: "someone-else"}, domain.SkipOwner},
		{"push by unknown owner", readmePush("someone-else", "images/base-notebook/README.md"), domain.SkipOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &recordingPublisher{}
			secrets := mocks.NewMockSecretProvider(t)
			metrics := mocks.NewMockMetricsRecorder(t)
			metrics.On("RecordSkip", mock.Anything, tt.code).Once()

			svc, err := NewService(trigger.DefaultPolicy(), publisher, staticContent{}, secrets, metrics, Options{
				Layout:    domain.DefaultLayout(),
				Targets:   domain.TargetsFromNames(domain.DefaultTargets),
				SecretKey: "QUAY_ROBOT_TOKEN",
			})
			require.NoError(t, err)

			report, err := svc.Sync(context.Background(), tt.tc)
			require.NoError(t, err)

			assert.True(t, report.Skipped())
			assert.Empty(t, report.Outcomes)
			assert.Empty(t, publisher.destinations())
			secrets.AssertNotCalled(t, "GetSecret", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Sync_ManualDispatch(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := newTestService(t, publisher, Options{})

	report, err := svc.Sync(context.Background(), domain.TriggerContext{Kind: domain.EventManual, Owner: "jupyter"})
	require.NoError(t, err)
	assert.Len(t, report.Succeeded(), 11)
}

func TestService_Sync_FailureDoesNotStopSiblings(t *testing.T) {
	publisher := &recordingPublisher{
		hook: func(_ context.Context, req domain.PublishRequest) error {
			if req.Target.Name == "r-notebook" {
				return errors.New("quay returned 500")
			}
			return nil
		},
	}
	svc := newTestService(t, publisher, Options{})

	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/r-notebook/README.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPublishFailed)
	assert.NotErrorIs(t, err, domain.ErrBatchTimeout)
	assert.Contains(t, err.Error(), "r-notebook")

	assert.Len(t, publisher.destinations(), 11)
	assert.Len(t, report.Succeeded(), 10)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "r-notebook", report.Failed()[0].Target.Name)
	assert.EqualError(t, report.Failed()[0].Err, "quay returned 500")
}

func TestService_Sync_NoRetry(t *testing.T) {
	var calls int
	var mu sync.Mutex
	publisher := &recordingPublisher{
		hook: func(_ context.Context, req domain.PublishRequest) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return errors.New("always failing")
		},
	}
	svc := newTestService(t, publisher, Options{Targets: []domain.Target{{Name: "base-notebook"}}})

	_, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestService_Sync_Timeout(t *testing.T) {
	publisher := &recordingPublisher{
		hook: func(ctx context.Context, req domain.PublishRequest) error {
			if req.Target.Name == "julia-notebook" {
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		},
	}
	svc := newTestService(t, publisher, Options{Timeout: 50 * time.Millisecond})

	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchTimeout)

	require.Len(t, report.Abandoned(), 1)
	assert.Equal(t, "julia-notebook", report.Abandoned()[0].Target.Name)
	assert.Equal(t, "quay.io/jupyter/julia-notebook", report.Abandoned()[0].Destination)
	assert.Len(t, report.Succeeded(), 10)
}

func TestService_Sync_TimeoutWithUnresponsivePublisher(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	publisher := &recordingPublisher{
		hook: func(_ context.Context, _ domain.PublishRequest) error {
			<-release
			return nil
		},
	}
	svc := newTestService(t, publisher, Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrBatchTimeout)
	assert.Len(t, report.Abandoned(), 11)
	assert.Empty(t, report.Succeeded())
}

func TestService_Sync_TimeoutWhileThrottled(t *testing.T) {
	secrets := mocks.NewMockSecretProvider(t)
	secrets.On("GetSecret", mock.Anything, "QUAY_ROBOT_TOKEN").Return(domain.NewSecret("robot-token"), nil)

	inner := &recordingPublisher{}
	// One token every 50ms: the sequential batch cannot finish 11 targets in 200ms.
	throttled := ratelimit.NewPublisher(inner, 20, 1, zerowrap.New(zerowrap.Config{Level: "disabled"}))

	svc, err := NewService(trigger.DefaultPolicy(), throttled, staticContent{}, secrets, nil, Options{
		Layout:      domain.DefaultLayout(),
		Targets:     domain.TargetsFromNames(domain.DefaultTargets),
		SecretKey:   "QUAY_ROBOT_TOKEN",
		Timeout:     200 * time.Millisecond,
		Parallelism: 1,
	})
	require.NoError(t, err)

	start := time.Now()
	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchTimeout)
	assert.NotErrorIs(t, err, domain.ErrPublishFailed)
	assert.Empty(t, report.Failed())
	assert.NotEmpty(t, report.Abandoned())
	assert.Len(t, report.Outcomes, 11)
	assert.Equal(t, 11, len(report.Succeeded())+len(report.Abandoned()))
}

func TestService_Sync_FailFast(t *testing.T) {
	publisher := &recordingPublisher{
		hook: func(_ context.Context, req domain.PublishRequest) error {
			if req.Target.Name == "base-notebook" {
				return errors.New("unauthorized")
			}
			return nil
		},
	}
	svc := newTestService(t, publisher, Options{Parallelism: 1, FailFast: true})

	report, err := svc.Sync(context.Background(), readmePush("jupyter", "images/base-notebook/README.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPublishFailed)
	assert.NotErrorIs(t, err, domain.ErrBatchTimeout)

	assert.Len(t, report.Succeeded(), 1) // docker-stacks-foundation ran first
	assert.Len(t, report.Failed(), 1)
	assert.Len(t, report.Abandoned(), 9)
	assert.Len(t, publisher.destinations(), 2)
}

func TestService_Sync_Sequential(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := newTestService(t, publisher, Options{Parallelism: 1})

	_, err := svc.Sync(context.Background(), domain.TriggerContext{Kind: domain.EventManual, Owner: "jupyter"})
	require.NoError(t, err)

	want := make([]string, 0, len(domain.DefaultTargets))
	for _, name := range domain.DefaultTargets {
		want = append(want, "quay.io/jupyter/"+name)
	}
	assert.Equal(t, want, publisher.destinations())
}

func TestService_Sync_OwnerOverride(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := newTestService(t, publisher, Options{Owner: "mirror", Targets: []domain.Target{{Name: "base-notebook"}}})

	_, err := svc.Sync(context.Background(), domain.TriggerContext{Kind: domain.EventManual, Owner: "jupyter"})
	require.NoError(t, err)
	assert.Equal(t, []string{"quay.io/mirror/base-notebook"}, publisher.destinations())
}

func TestService_Sync_SecretFailure(t *testing.T) {
	publisher := &recordingPublisher{}
	secrets := mocks.NewMockSecretProvider(t)
	secrets.On("GetSecret", mock.Anything, "QUAY_ROBOT_TOKEN").
		Return(domain.Secret{}, fmt.Errorf("%w: QUAY_ROBOT_TOKEN", domain.ErrSecretNotFound)).Once()

	svc, err := NewService(trigger.DefaultPolicy(), publisher, staticContent{}, secrets, nil, Options{
		Layout:    domain.DefaultLayout(),
		Targets:   domain.TargetsFromNames(domain.DefaultTargets),
		SecretKey: "QUAY_ROBOT_TOKEN",
	})
	require.NoError(t, err)

	report, err := svc.Sync(context.Background(), domain.TriggerContext{Kind: domain.EventManual, Owner: "jupyter"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, publisher.destinations())
}

func TestService_Run_ContentFailure(t *testing.T) {
	publisher := mocks.NewMockOverviewPublisher(t)
	publisher.On("Provider").Return("quay").Maybe()

	content := mocks.NewMockContentReader(t)
	content.On("ReadContent", mock.Anything, "images/base-notebook/README.md").
		Return(nil, domain.ErrContentNotFound).Once()

	secrets := mocks.NewMockSecretProvider(t)
	svc, err := NewService(trigger.DefaultPolicy(), publisher, content, secrets, nil, Options{
		Layout:  domain.DefaultLayout(),
		Targets: []domain.Target{{Name: "base-notebook"}},
	})
	require.NoError(t, err)

	outcome := svc.Run(context.Background(), domain.Target{Name: "base-notebook"}, "jupyter", domain.NewSecret("t"))

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrContentNotFound)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Run_RecordsMetrics(t *testing.T) {
	publisher := mocks.NewMockOverviewPublisher(t)
	publisher.On("Provider").Return("quay")
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(req domain.PublishRequest) bool {
		return req.Destination == "quay.io/jupyter/base-notebook" &&
			req.SourcePath == "images/base-notebook/README.md" &&
			req.Provider == "quay"
	})).Return(nil).Once()

	metrics := mocks.NewMockMetricsRecorder(t)
	metrics.On("RecordPublish", mock.Anything, "quay", domain.StatusSucceeded, mock.AnythingOfType("time.Duration")).Once()

	svc, err := NewService(trigger.DefaultPolicy(), publisher, staticContent{}, mocks.NewMockSecretProvider(t), metrics, Options{
		Layout:  domain.DefaultLayout(),
		Targets: []domain.Target{{Name: "base-notebook"}},
	})
	require.NoError(t, err)

	outcome := svc.Run(context.Background(), domain.Target{Name: "base-notebook"}, "jupyter", domain.NewSecret("t"))
	assert.Equal(t, domain.StatusSucceeded, outcome.Status)
	assert.NoError(t, outcome.Err)
}

func TestService_EnumerateTargets(t *testing.T) {
	svc := newTestService(t, &recordingPublisher{}, Options{})

	first := svc.EnumerateTargets()
	first[0].Name = "mutated"

	second := svc.EnumerateTargets()
	assert.Equal(t, domain.TargetsFromNames(domain.DefaultTargets), second)
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		targets []domain.Target
	}{
		{"no targets", nil},
		{"empty name", []domain.Target{{Name: ""}}},
		{"nested name", []domain.Target{{Name: "jupyter/base-notebook"}}},
		{"traversal", []domain.Target{{Name: ".."}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(trigger.DefaultPolicy(), &recordingPublisher{}, staticContent{}, nil, nil, Options{
				Targets: tt.targets,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidTarget)
		})
	}
}
