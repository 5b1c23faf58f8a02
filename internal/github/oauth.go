package github

import (
	"context"
	"fmt"
	"time"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/config"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// Identity is what a successful sign-in yields.
type Identity struct {
	ID          string
	Login       string
	AccessToken string
}

// OAuthProvider runs the authorization code flow against GitHub. The "repo"
// scope is requested because hooks are managed with the user's token.
type OAuthProvider struct {
	config  *oauth2.Config
	api     *Client
	timeout time.Duration
}

func NewOAuthProvider(cfg config.GitHub, callbackURL string, api *Client) *OAuthProvider {
	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"repo"},
			Endpoint:     githuboauth.Endpoint,
		},
		api:     api,
		timeout: cfg.Timeout,
	}
}

func (p *OAuthProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for a token and resolves the user
// it belongs to.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	const op = "internal.github.Exchange"

	exchangeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, p.api.httpClient)

	token, err := p.config.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: exchanging code: %v", op, apperrors.ErrUpstream, err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: empty access token", op, apperrors.ErrUpstream)
	}

	return p.api.CurrentUser(ctx, token.AccessToken)
}
