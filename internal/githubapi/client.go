// Package githubapi is the GitHub OAuth device-flow and webhook client.
package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gitpingio/gitping/internal/config"
)

const (
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	deviceCodePath  = "/login/device/code"
	accessTokenPath = "/login/oauth/access_token"
)

// Client talks to the GitHub OAuth device-flow endpoints and the REST API.
type Client struct {
	baseURL       string
	apiBaseURL    string
	clientID      string
	scope         string
	webhookSecret string
	logger        *slog.Logger
	http          *http.Client
}

// NewClient creates a GitHub client from config.
func NewClient(log *slog.Logger, cfg config.GitHubConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("github client: client id is required")
	}
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultGitHubBaseURL
	}
	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = config.DefaultGitHubAPIURL
	}
	scope := strings.TrimSpace(cfg.Scope)
	if scope == "" {
		scope = config.DefaultGitHubScope
	}
	return &Client{
		baseURL:       baseURL,
		apiBaseURL:    apiBaseURL,
		clientID:      cfg.ClientID,
		scope:         scope,
		webhookSecret: cfg.WebhookSecret,
		logger:        log.With(slog.String("client", "github")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type deviceGrantResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// RequestDeviceGrant starts a device-flow authorization and returns the grant.
// A response missing any required field yields ErrInvalidGrant.
func (c *Client) RequestDeviceGrant(ctx context.Context) (DeviceGrant, error) {
	payload := map[string]string{
		"client_id": c.clientID,
		"scope":     c.scope,
	}
	var resp deviceGrantResponse
	if err := c.postJSON(ctx, c.baseURL+deviceCodePath, "", payload, &resp); err != nil {
		return DeviceGrant{}, err
	}
	if resp.DeviceCode == "" || resp.UserCode == "" || resp.VerificationURI == "" || resp.ExpiresIn <= 0 || resp.Interval <= 0 {
		return DeviceGrant{}, ErrInvalidGrant
	}
	return DeviceGrant{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		ExpiresIn:       time.Duration(resp.ExpiresIn) * time.Second,
		Interval:        time.Duration(resp.Interval) * time.Second,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	Interval    int    `json:"interval"`
}

// PollToken polls for the user-approved credential once.
// It returns ErrAuthorizationPending or *SlowDownError for the expected
// steady-state signals, the access token on approval, and an opaque error
// for every other provider response.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (string, error) {
	payload := map[string]string{
		"client_id":   c.clientID,
		"device_code": deviceCode,
		"grant_type":  deviceGrantType,
	}
	var resp tokenResponse
	if err := c.postJSON(ctx, c.baseURL+accessTokenPath, "", payload, &resp); err != nil {
		return "", err
	}
	switch resp.Error {
	case "":
		if resp.AccessToken == "" {
			return "", fmt.Errorf("github: token response without access token")
		}
		return resp.AccessToken, nil
	case "authorization_pending":
		return "", ErrAuthorizationPending
	case "slow_down":
		interval := time.Duration(resp.Interval) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}
		return "", &SlowDownError{Interval: interval}
	default:
		return "", fmt.Errorf("github: token poll error: %s", resp.Error)
	}
}

type webhookRequest struct {
	Name   string        `json:"name"`
	Active bool          `json:"active"`
	Events []string      `json:"events"`
	Config webhookConfig `json:"config"`
}

type webhookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret,omitempty"`
}

// RegisterPushWebhook creates a push webhook on the repository using the
// caller's token. A hook that already exists counts as success.
func (c *Client) RegisterPushWebhook(ctx context.Context, token, owner, repo, callbackURL string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("github: token is required")
	}
	payload := webhookRequest{
		Name:   "web",
		Active: true,
		Events: []string{"push"},
		Config: webhookConfig{
			URL:         callbackURL,
			ContentType: "json",
			Secret:      c.webhookSecret,
		},
	}
	url := fmt.Sprintf("%s/repos/%s/%s/hooks", c.apiBaseURL, owner, repo)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: register webhook: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusCreated || res.StatusCode == http.StatusOK {
		c.logger.Info("webhook registered", slog.String("repo", owner+"/"+repo))
		return nil
	}
	// 422 means a hook with this config already exists.
	if res.StatusCode == http.StatusUnprocessableEntity {
		c.logger.Debug("webhook already exists", slog.String("repo", owner+"/"+repo))
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("github: register webhook: status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
}

func (c *Client) postJSON(ctx context.Context, url, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("github: status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
