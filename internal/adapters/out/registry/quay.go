package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/logging"
)

// Provider tags.
const (
	ProviderQuay      = "quay"
	ProviderDockerHub = "dockerhub"
)

// DefaultQuayAPIURL is the base URL of the Quay API.
const DefaultQuayAPIURL = "https://quay.io"

// DefaultTimeout is the default timeout of a single registry API call.
const DefaultTimeout = 15 * time.Second

// Ensure Quay implements out.OverviewPublisher.
var _ out.OverviewPublisher = (*Quay)(nil)

// Quay publishes overviews through the Quay repository API using a robot or
// OAuth token.
type Quay struct {
	client  *http.Client
	baseURL string
	log     zerowrap.Logger
}

// Option configures a publisher.
type Option func(*options)

type options struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout sets the timeout of each API call.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{baseURL: defaultURL, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		o.baseURL = defaultURL
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o
}

// NewQuay creates a new Quay publisher.
func NewQuay(log zerowrap.Logger, opts ...Option) *Quay {
	o := buildOptions(DefaultQuayAPIURL, opts)
	return &Quay{
		client:  o.client,
		baseURL: o.baseURL,
		log:     log,
	}
}

// Provider returns the provider tag.
func (q *Quay) Provider() string {
	return ProviderQuay
}

type quayUpdate struct {
	Description string `json:"description"`
}

// Publish replaces the repository description.
func (q *Quay) Publish(ctx context.Context, req domain.PublishRequest) error {
	repo, err := parseDestination(req.Destination)
	if err != nil {
		return err
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmptyContent, req.SourcePath)
	}

	body, err := json.Marshal(quayUpdate{Description: string(req.Content)})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/repository/%s", q.baseURL, repo.Path())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential.Reveal())
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := q.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w %s: %w", domain.ErrPublishFailed, req.Destination, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, req.Destination); err != nil {
		return err
	}

	q.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "quay").
		Str(logging.FieldDestination, req.Destination).
		Int(zerowrap.FieldStatus, resp.StatusCode).
		Msg("quay repository description updated")

	return nil
}

const userAgent = "overviews/1.0"

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 512

// checkResponse turns non-2xx responses into errors carrying the API message.
func checkResponse(resp *http.Response, destination string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	sentinel := domain.ErrPublishFailed
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		sentinel = domain.ErrRegistryAuth
	}

	return fmt.Errorf("%w %s: %s: %s", sentinel, destination, resp.Status, bytes.TrimSpace(msg))
}
