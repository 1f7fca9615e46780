// Package auth implements the platform's OAuth2 authorization-code flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Veraticus/fieldwise/internal/common"
)

// Default platform OAuth endpoints.
const (
	DefaultAuthURL  = "https://api.getjobber.com/api/oauth/authorize"
	DefaultTokenURL = "https://api.getjobber.com/api/oauth/token"
)

// Config holds OAuth2 client configuration.
type Config struct {
	HTTPClient   *http.Client
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
}

// Flow builds authorization URLs and exchanges codes for access tokens.
type Flow struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewFlow creates a Flow. Client id and secret are required.
func NewFlow(cfg Config) (*Flow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: oauth client id and secret", common.ErrMissingConfig)
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}

	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: cfg.HTTPClient,
	}, nil
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}

// AuthCodeURL returns the consent page URL carrying state.
func (f *Flow) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("no authorization code received")
	}

	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &common.TransportError{
				Service:    "jobber oauth",
				StatusCode: retrieveErr.Response.StatusCode,
				Err:        err,
			}
		}
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", common.ErrCredentialInvalid)
	}
	return token, nil
}
