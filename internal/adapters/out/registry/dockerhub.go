package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/boundaries/out"
	"github.com/jupyter/overviews/internal/domain"
	"github.com/jupyter/overviews/internal/logging"
)

// DefaultDockerHubAPIURL is the base URL of the Docker Hub API.
const DefaultDockerHubAPIURL = "https://hub.docker.com"

// MaxDockerHubDescription is the largest full description Docker Hub accepts.
const MaxDockerHubDescription = 25000

// Ensure DockerHub implements out.OverviewPublisher.
var _ out.OverviewPublisher = (*DockerHub)(nil)

// DockerHub publishes overviews as Docker Hub full descriptions. The
// credential is the account password or personal access token of username.
type DockerHub struct {
	client   *http.Client
	baseURL  string
	username string
	log      zerowrap.Logger

	mu    sync.Mutex
	token string
}

// NewDockerHub creates a new Docker Hub publisher.
func NewDockerHub(username string, log zerowrap.Logger, opts ...Option) *DockerHub {
	o := buildOptions(DefaultDockerHubAPIURL, opts)
	return &DockerHub{
		client:   o.client,
		baseURL:  o.baseURL,
		username: username,
		log:      log,
	}
}

// Provider returns the provider tag.
func (d *DockerHub) Provider() string {
	return ProviderDockerHub
}

type dockerHubLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type dockerHubToken struct {
	Token string `json:"token"`
}

type dockerHubUpdate struct {
	FullDescription string `json:"full_description"`
}

// Publish replaces the repository full description.
func (d *DockerHub) Publish(ctx context.Context, req domain.PublishRequest) error {
	repo, err := parseDestination(req.Destination)
	if err != nil {
		return err
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmptyContent, req.SourcePath)
	}
	if err := checkDockerHubSize(req); err != nil {
		return err
	}

	token, err := d.login(ctx, req.Credential)
	if err != nil {
		return err
	}

	body, err := json.Marshal(dockerHubUpdate{FullDescription: string(req.Content)})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/repositories/%s/", d.baseURL, repo.Path())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "JWT "+token)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w %s: %w", domain.ErrPublishFailed, req.Destination, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, req.Destination); err != nil {
		return err
	}

	d.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "dockerhub").
		Str(logging.FieldDestination, req.Destination).
		Msg("docker hub full description updated")

	return nil
}

// login exchanges the credential for a JWT once and shares it between
// concurrent publishes.
func (d *DockerHub) login(ctx context.Context, credential domain.Secret) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != "" {
		return d.token, nil
	}

	body, err := json.Marshal(dockerHubLogin{Username: d.username, Password: credential.Reveal()})
	if err != nil {
		return "", fmt.Errorf("failed to encode login: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/users/login/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: docker hub login: %w", domain.ErrRegistryAuth, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "docker hub login"); err != nil {
		return "", err
	}

	var tok dockerHubToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode docker hub login response: %w", err)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("%w: docker hub login returned no token", domain.ErrRegistryAuth)
	}

	d.token = tok.Token
	return d.token, nil
}

func checkDockerHubSize(req domain.PublishRequest) error {
	if len(req.Content) > MaxDockerHubDescription {
		return fmt.Errorf("%w: %s is %d bytes (max %d)",
			domain.ErrContentTooLarge, req.SourcePath, len(req.Content), MaxDockerHubDescription)
	}
	return nil
}
