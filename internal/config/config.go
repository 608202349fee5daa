// Package config loads the overview sync configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jupyter/overviews/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	Trigger   TriggerConfig   `mapstructure:"trigger"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// TriggerConfig describes which events run the sync and who may run it.
type TriggerConfig struct {
	Branch        string   `mapstructure:"branch" validate:"required"`
	Paths         []string `mapstructure:"paths" validate:"required,min=1,dive,required"`
	AllowedOwners []string `mapstructure:"allowed_owners" validate:"required,min=1,dive,required"`
	// DetectChanges diffs the local checkout when a push payload carries no
	// per-commit file lists.
	DetectChanges bool `mapstructure:"detect_changes"`
}

// RegistryConfig describes where overviews are published.
type RegistryConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=quay dockerhub"`
	Host     string        `mapstructure:"host" validate:"required,hostname|hostname_port"`
	APIURL   string        `mapstructure:"api_url" validate:"omitempty,url"`
	Owner    string        `mapstructure:"owner"` // overrides the repository owner in destinations
	Username string        `mapstructure:"username" validate:"required_if=Provider dockerhub"`
	Secret   SecretConfig  `mapstructure:"secret"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps" validate:"gte=0"`
		Burst int     `mapstructure:"burst" validate:"gte=1"`
	} `mapstructure:"rate_limit"`
}

// SecretConfig points at the registry credential.
type SecretConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=env pass"`
	Key      string `mapstructure:"key" validate:"required"`
}

// SyncConfig describes the targets and how the batch runs.
type SyncConfig struct {
	Targets     []string      `mapstructure:"targets" validate:"required,min=1,dive,required"`
	RepoRoot    string        `mapstructure:"repo_root" validate:"required"`
	ImagesDir   string        `mapstructure:"images_dir" validate:"required"`
	ReadmeFile  string        `mapstructure:"readme_file" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Parallelism int           `mapstructure:"parallelism" validate:"gte=0"`
	FailFast    bool          `mapstructure:"fail_fast"`
	DryRun      bool          `mapstructure:"dry_run"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	File   struct {
		Enabled    bool   `mapstructure:"enabled"`
		Path       string `mapstructure:"path" validate:"required_if=Enabled true"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
	} `mapstructure:"file"`
}

// TelemetryConfig controls OTLP metric export.
type TelemetryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	AuthToken string `mapstructure:"auth_token"`
}

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. OVERVIEWS_SYNC_DRY_RUN=true.
const EnvPrefix = "OVERVIEWS"

// SetDefaults registers the defaults of the upstream workflow.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("trigger.branch", "main")
	v.SetDefault("trigger.paths", []string{
		".github/workflows/registry-overviews.yml",
		"images/*/README.md",
	})
	v.SetDefault("trigger.allowed_owners", []string{"jupyter", "mathbunnyru"})
	v.SetDefault("trigger.detect_changes", true)

	v.SetDefault("registry.provider", "quay")
	v.SetDefault("registry.host", domain.DefaultRegistry)
	v.SetDefault("registry.api_url", "")
	v.SetDefault("registry.owner", "")
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.secret.provider", "env")
	v.SetDefault("registry.secret.key", "QUAY_ROBOT_TOKEN")
	v.SetDefault("registry.timeout", 15*time.Second)
	v.SetDefault("registry.rate_limit.rps", 0)
	v.SetDefault("registry.rate_limit.burst", 1)

	v.SetDefault("sync.targets", domain.DefaultTargets)
	v.SetDefault("sync.repo_root", ".")
	v.SetDefault("sync.images_dir", domain.DefaultImagesDir)
	v.SetDefault("sync.readme_file", domain.DefaultReadmeFile)
	v.SetDefault("sync.timeout", time.Minute)
	v.SetDefault("sync.parallelism", 0)
	v.SetDefault("sync.fail_fast", false)
	v.SetDefault("sync.dry_run", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.auth_token", "")
}

// Load reads the configuration from configPath (or overviews.yaml in the
// working directory when empty), the environment and the defaults.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("overviews")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// providerHosts lists the registry hosts each provider's public API serves.
var providerHosts = map[string][]string{
	"quay":      {"quay.io"},
	"dockerhub": {"docker.io", "index.docker.io", "registry-1.docker.io"},
}

// Validate checks the configuration against its struct tags, then checks
// that the registry host belongs to the provider. Any host is accepted with
// an explicit api_url.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	r := c.Registry
	if r.APIURL == "" && !slices.Contains(providerHosts[r.Provider], r.Host) {
		return fmt.Errorf("%w: registry host %q is not served by provider %q (set registry.api_url for a self-hosted registry)",
			domain.ErrInvalidConfig, r.Host, r.Provider)
	}
	return nil
}

// Layout returns the destination and source layout.
func (c *Config) Layout() domain.Layout {
	return domain.Layout{
		Registry:   c.Registry.Host,
		ImagesDir:  c.Sync.ImagesDir,
		ReadmeFile: c.Sync.ReadmeFile,
	}
}

// SecretRef returns the reference of the registry credential.
func (c *Config) SecretRef() domain.SecretRef {
	return domain.SecretRef{Provider: c.Registry.Secret.Provider, Key: c.Registry.Secret.Key}
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables already set are left untouched. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
