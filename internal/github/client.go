// Package github talks to the GitHub REST API on behalf of signed-in users:
// OAuth sign-in, repository hook management and a reachability probe.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/config"
	"github.com/YusovID/git-done/internal/domain"
	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// HookEvents are the deliveries a goal can be completed by.
var HookEvents = []string{"push", "issues"}

type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	timeout       time.Duration
	healthTimeout time.Duration
	log           *slog.Logger
}

func NewClient(cfg config.GitHub, log *slog.Logger) (*Client, error) {
	const op = "internal.github.NewClient"

	c := &Client{
		httpClient:    &http.Client{},
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		log:           log,
	}

	if cfg.APIBaseURL != "" {
		base := cfg.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}

		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid api base url: %w", op, err)
		}

		c.baseURL = u
	}

	return c, nil
}

// api returns a go-github client that authenticates as token. An empty token
// gives an anonymous client.
func (c *Client) api(ctx context.Context, token string) *gogithub.Client {
	httpClient := c.httpClient
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := gogithub.NewClient(httpClient)
	if c.baseURL != nil {
		client.BaseURL = c.baseURL
	}

	return client
}

// CurrentUser fetches the account token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (*Identity, error) {
	const op = "internal.github.CurrentUser"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, _, err := c.api(ctx, token).Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, apperrors.ErrUpstream, err)
	}

	if user.GetID() == 0 || user.GetLogin() == "" {
		return nil, fmt.Errorf("%s: %w: github returned an incomplete user", op, apperrors.ErrUpstream)
	}

	return &Identity{
		ID:          strconv.FormatInt(user.GetID(), 10),
		Login:       user.GetLogin(),
		AccessToken: token,
	}, nil
}

// RegisterHook creates a JSON webhook on repo for HookEvents and returns
// its id.
func (c *Client) RegisterHook(ctx context.Context, token string, repo domain.Repo, callbackURL, secret string) (string, error) {
	const op = "internal.github.RegisterHook"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hook := &gogithub.Hook{
		Name:   gogithub.String("web"),
		Active: gogithub.Bool(true),
		Events: HookEvents,
		Config: map[string]interface{}{
			"url":          callbackURL,
			"content_type": "json",
			"secret":       secret,
			"insecure_ssl": "0",
		},
	}

	created, _, err := c.api(ctx, token).Repositories.CreateHook(ctx, repo.Owner, repo.Name, hook)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", op, repo.FullName(), err)
	}

	id := strconv.FormatInt(created.GetID(), 10)

	c.log.Info("webhook registered", slog.String("op", op), slog.String("repo", repo.FullName()), slog.String("hook_id", id))

	return id, nil
}

// DeleteHook removes hook hookID from repo. A hook that is already gone is
// not an error.
func (c *Client) DeleteHook(ctx context.Context, token string, repo domain.Repo, hookID string) error {
	const op = "internal.github.DeleteHook"

	id, err := strconv.ParseInt(hookID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid hook id %q: %w", op, hookID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api(ctx, token).Repositories.DeleteHook(ctx, repo.Owner, repo.Name, id)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			c.log.Info("webhook already removed", slog.String("op", op), slog.String("repo", repo.FullName()), slog.String("hook_id", hookID))
			return nil
		}

		return fmt.Errorf("%s: %s: %w", op, repo.FullName(), err)
	}

	return nil
}

// Ping reports whether the API answers, using the unauthenticated zen
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	const op = "internal.github.Ping"

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	client := c.api(ctx, "")

	req, err := client.NewRequest(http.MethodGet, "zen", nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := client.Do(ctx, req, io.Discard); err != nil {
		var rateErr *gogithub.RateLimitError
		if errors.As(err, &rateErr) {
			// Rate limited still means reachable.
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
