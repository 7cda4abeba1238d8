package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/integrations"
)

// Scopes requested during sign-in: profile plus e-mail addresses.
var Scopes = []string{"read:user", "user:email"}

// ErrNoVerifiedEmail is returned when the account has no verified address.
var ErrNoVerifiedEmail = errors.New("github account has no verified email")

// OAuthClient handles GitHub OAuth operations.
type OAuthClient struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	retry      httputil.Policy
}

// Option customizes an OAuthClient.
type Option func(*OAuthClient)

// WithEndpoints overrides the GitHub URLs.
func WithEndpoints(e Endpoints) Option {
	return func(c *OAuthClient) {
		c.oauth.Endpoint = oauth2.Endpoint{
			AuthURL:   e.AuthURL,
			TokenURL:  e.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
		c.apiURL = strings.TrimSuffix(e.APIURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for token exchange and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OAuthClient) { c.httpClient = hc }
}

// WithRetryPolicy sets the retry policy for API calls.
func WithRetryPolicy(p httputil.Policy) Option {
	return func(c *OAuthClient) { c.retry = p }
}

// NewOAuthClient creates a new OAuth client.
func NewOAuthClient(config OAuthConfig, opts ...Option) *OAuthClient {
	c := &OAuthClient{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       Scopes,
		},
		httpClient: integrations.NewHTTPClient(),
		retry:      httputil.DefaultPolicy,
	}
	WithEndpoints(DefaultEndpoints)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizationURL returns the GitHub OAuth authorization URL.
func (c *OAuthClient) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// FetchUser returns the profile of the token's owner. When the profile hides
// the e-mail address, the primary verified address is looked up instead.
func (c *OAuthClient) FetchUser(ctx context.Context, tok *oauth2.Token) (*User, error) {
	api := c.apiClient(tok)

	var u User
	if err := api.Get(ctx, c.apiURL+"/user", &u); err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if u.Email != "" {
		return &u, nil
	}

	var emails []Email
	if err := api.Get(ctx, c.apiURL+"/user/emails", &emails); err != nil {
		return nil, fmt.Errorf("fetch user emails: %w", err)
	}
	email, ok := PickEmail(emails)
	if !ok {
		return nil, ErrNoVerifiedEmail
	}
	u.Email = email
	return &u, nil
}

func (c *OAuthClient) apiClient(tok *oauth2.Token) *integrations.Client {
	api := integrations.NewClient(c.httpClient, map[string]string{
		"Accept":               "application/vnd.github+json",
		"Authorization":        "Bearer " + tok.AccessToken,
		"X-GitHub-Api-Version": "2022-11-28",
	})
	api.SetRetryPolicy(c.retry)
	return api
}

// PickEmail chooses the primary verified address, falling back to the first
// verified one.
func PickEmail(emails []Email) (string, bool) {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true
		}
	}
	return "", false
}
