// Package app provides the application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	// Adapters - Input
	"github.com/jupyter/overviews/internal/adapters/in/ghaction"

	// Adapters - Output
	"github.com/jupyter/overviews/internal/adapters/out/filesystem"
	"github.com/jupyter/overviews/internal/adapters/out/gitdiff"
	"github.com/jupyter/overviews/internal/adapters/out/ratelimit"
	"github.com/jupyter/overviews/internal/adapters/out/registry"
	"github.com/jupyter/overviews/internal/adapters/out/secrets"
	"github.com/jupyter/overviews/internal/adapters/out/telemetry"

	// Boundaries
	"github.com/jupyter/overviews/internal/boundaries/out"

	"github.com/jupyter/overviews/internal/config"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/logging"

	// Use cases
	"github.com/jupyter/overviews/internal/usecase/overview"
	"github.com/jupyter/overviews/internal/usecase/trigger"
)

// ServiceName identifies the process in logs and telemetry.
const ServiceName = "overviews"

// Options carries the process-level inputs of the application.
type Options struct {
	ConfigPath string
	EnvFile    string
	Version    string
	Stderr     io.Writer
}

// App holds the wired application.
type App struct {
	Config  *config.Config
	Log     zerowrap.Logger
	Service *overview.Service

	detector out.ChangeDetector
	closers  []func(context.Context) error
}

// New loads the configuration and wires every adapter. v may carry flag
// bindings; they take precedence over the config file and the environment.
func New(ctx context.Context, v *viper.Viper, opts Options) (*App, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.Setup(cfg.Logging, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithField(zerowrap.FieldService, ServiceName)

	a := &App{Config: cfg, Log: log}
	a.closers = append(a.closers, func(context.Context) error {
		closeLog()
		return nil
	})

	if err := a.wire(ctx, opts); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	cfg := a.Config

	_, shutdown, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:   cfg.Telemetry.Enabled,
		Endpoint:  cfg.Telemetry.Endpoint,
		AuthToken: cfg.Telemetry.AuthToken,
	}, ServiceName, opts.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	secretProvider, err := createSecretProvider(cfg, a.Log)
	if err != nil {
		return err
	}

	publisher, err := createPublisher(cfg, a.Log)
	if err != nil {
		return err
	}

	policy, err := trigger.NewPolicy(cfg.Trigger.Branch, cfg.Trigger.Paths, cfg.Trigger.AllowedOwners)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	content := filesystem.NewContentReader(cfg.Sync.RepoRoot, a.Log)

	a.Service, err = overview.NewService(policy, publisher, content, secretProvider, metrics, overview.Options{
		Layout:      cfg.Layout(),
		Targets:     domain.TargetsFromNames(cfg.Sync.Targets),
		Owner:       cfg.Registry.Owner,
		SecretKey:   cfg.Registry.Secret.Key,
		Timeout:     cfg.Sync.Timeout,
		Parallelism: cfg.Sync.Parallelism,
		FailFast:    cfg.Sync.FailFast,
	})
	if err != nil {
		return err
	}

	if cfg.Trigger.DetectChanges {
		a.detector = createChangeDetector(cfg, a.Log)
	}

	return nil
}

// Close releases the log file and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Context returns ctx carrying the application logger tagged with a fresh
// run ID, so concurrent target logs of one invocation can be correlated.
func (a *App) Context(ctx context.Context) context.Context {
	return zerowrap.WithCtx(ctx, a.Log.WithField("run_id", uuid.NewString()))
}

func createSecretProvider(cfg *config.Config, log zerowrap.Logger) (out.SecretProvider, error) {
	provider, err := secrets.NewProvider(cfg.Registry.Secret.Provider, log)
	if err != nil {
		return nil, err
	}
	if cfg.Sync.DryRun {
		return secrets.NewOptionalProvider(provider, log), nil
	}
	return provider, nil
}

func createPublisher(cfg *config.Config, log zerowrap.Logger) (out.OverviewPublisher, error) {
	if cfg.Sync.DryRun {
		return registry.NewDryRun(cfg.Registry.Provider, log), nil
	}

	opts := []registry.Option{registry.WithTimeout(cfg.Registry.Timeout)}
	if cfg.Registry.APIURL != "" {
		opts = append(opts, registry.WithBaseURL(strings.TrimSuffix(cfg.Registry.APIURL, "/")))
	}

	publisher, err := registry.New(cfg.Registry.Provider, cfg.Registry.Username, log, opts...)
	if err != nil {
		return nil, err
	}

	return ratelimit.NewPublisher(publisher, cfg.Registry.RateLimit.RPS, cfg.Registry.RateLimit.Burst, log), nil
}

// createChangeDetector opens the checkout for change detection. A missing
// repository only disables the fallback.
func createChangeDetector(cfg *config.Config, log zerowrap.Logger) out.ChangeDetector {
	detector, err := gitdiff.NewDetector(cfg.Sync.RepoRoot, log)
	if err != nil {
		log.Debug().Err(err).Msg("change detection disabled")
		return nil
	}
	return detector
}

// TriggerInput holds trigger values given on the command line.
type TriggerInput struct {
	Event   string
	Branch  string
	Owner   string
	Changed []string
	// DiffBase is a git revision; when set and no paths were given, the
	// changed paths are computed from DiffBase..HEAD.
	DiffBase string
}

// ResolveTrigger builds the trigger context from explicit input, or from the
// GitHub Actions environment when no event was given.
func (a *App) ResolveTrigger(ctx context.Context, input TriggerInput, getenv func(string) string) (domain.TriggerContext, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if input.Event == "" {
		opts := []ghaction.Option{ghaction.WithGetenv(getenv)}
		if a.detector != nil {
			opts = append(opts, ghaction.WithChangeDetector(a.detector))
		}
		loader := ghaction.NewLoader(a.Log, opts...)
		if !loader.Detected() {
			return domain.TriggerContext{}, fmt.Errorf("%w: no event given and not running in GitHub Actions", domain.ErrUnsupportedEvent)
		}
		return loader.Load(ctx)
	}

	tc := domain.TriggerContext{
		Kind:   domain.EventKind(input.Event),
		Branch: input.Branch,
		Owner:  input.Owner,
	}
	paths := input.Changed
	if len(paths) == 0 && input.DiffBase != "" {
		if a.detector == nil {
			return domain.TriggerContext{}, fmt.Errorf("%w: change detection requires a git checkout at %s", domain.ErrInvalidConfig, a.Config.Sync.RepoRoot)
		}
		detected, err := a.detector.ChangedPaths(ctx, input.DiffBase, "HEAD")
		if err != nil {
			return domain.TriggerContext{}, err
		}
		paths = detected
	}
	return tc.WithChangedPaths(paths), nil
}
