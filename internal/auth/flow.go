// Package auth implements the Microsoft account sign-in flow for the
// launcher: the PKCE authorization request, the redirect code capture, the
// token exchange chain down to a playable Minecraft identity, and the
// standalone token refresh.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/oops"
	"golang.org/x/oauth2"

	"github.com/decent-client/launcher/internal/api"
)

// DefaultRedirectURL is the well-known desktop redirect. Capture mechanisms
// match navigations against this prefix; providers may append an arbitrary
// query or fragment.
const DefaultRedirectURL = "https://login.live.com/oauth20_desktop.srf"

// Consumer-tenant OAuth2 endpoints. Vars so tests can point them at a local
// server.
var (
	authorizeEndpoint = "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"
	tokenEndpoint     = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
)

// cobrandID applies Minecraft co-branding to the Microsoft sign-in page.
const cobrandID = "8058f65d-ce06-4c30-9559-473c9275a65d"

// clientSecretEnv names the override documented in the invalid_client
// remediation message; config reads the same variable.
const clientSecretEnv = "MSA_CLIENT_SECRET"

var scopes = []string{"XboxLive.signin", "offline_access"}

// Options configures a Flow.
type Options struct {
	// ClientID of the Azure application registration. Required.
	ClientID string
	// ClientSecret is empty for the default public-client flow.
	ClientSecret string
	// RedirectURL defaults to DefaultRedirectURL.
	RedirectURL string
	// API overrides the chain client, e.g. for tests.
	API *api.Client
}

// Flow is the ephemeral state of one authentication attempt: the PKCE
// verifier, the CSRF state and the authorization URL derived from them. It is
// created per attempt and never persisted.
type Flow struct {
	oauth      *oauth2.Config
	verifier   string
	state      string
	authURL    string
	api        *api.Client
	httpClient *http.Client
}

// NewFlow builds the authorization request for one sign-in attempt.
func NewFlow(opts Options) (*Flow, error) {
	if opts.ClientID == "" {
		return nil, oops.Code(CodeConfigInvalid).Errorf("client id must not be empty")
	}
	redirect := opts.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	for _, raw := range []string{authorizeEndpoint, tokenEndpoint, redirect} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, oops.Code(CodeConfigInvalid).Wrapf(err, "parse endpoint %q", raw)
		}
	}

	apiClient := opts.API
	if apiClient == nil {
		apiClient = api.NewClient()
	}

	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authorizeEndpoint,
			TokenURL:  tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	verifier := oauth2.GenerateVerifier()
	state, err := generateState()
	if err != nil {
		return nil, err
	}

	authURL := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("cobrandid", cobrandID),
	)

	return &Flow{
		oauth:      conf,
		verifier:   verifier,
		state:      state,
		authURL:    authURL,
		api:        apiClient,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AuthURL is the authorization URL to present to the user.
func (f *Flow) AuthURL() string {
	return f.authURL
}

// State is the CSRF state round-tripped through the redirect.
func (f *Flow) State() string {
	return f.state
}

// RedirectURL is the redirect prefix capture mechanisms should match on.
func (f *Flow) RedirectURL() string {
	return f.oauth.RedirectURL
}

// generateState returns a fresh CSRF token: 32 random bytes, base64url.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Wrapf(err, "generate CSRF state")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
