package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/samber/oops"

	"github.com/decent-client/launcher/internal/core"
)

// refreshExpiryBuffer triggers a refresh slightly before the recorded expiry
// so a token handed to the game is not about to lapse.
const refreshExpiryBuffer = 5 * time.Minute

// Refresher renews an account's Microsoft tokens from its stored refresh
// token, independent of the interactive flow. Unlike the interactive chain it
// may retry transient transport failures, since it runs unattended in
// long-lived sessions.
type Refresher struct {
	clientID   string
	httpClient *http.Client
}

func NewRefresher(clientID string) *Refresher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // Silence default logging
	retryClient.HTTPClient.Timeout = 30 * time.Second

	return &Refresher{
		clientID:   clientID,
		httpClient: retryClient.StandardClient(),
	}
}

// Refresh renews the tokens in place. Unless force is set it is a no-op while
// the current access token is still comfortably within its lifetime.
func (r *Refresher) Refresh(ctx context.Context, tokens *core.MicrosoftTokens, force bool) error {
	if !force && !tokens.Expired(refreshExpiryBuffer) {
		return nil
	}

	data := url.Values{
		"client_id":     {r.clientID},
		"refresh_token": {tokens.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return oops.Code(CodeOAuthExchange).Wrapf(err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return oops.Code(CodeOAuthExchange).Wrapf(err, "refresh microsoft token")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return oops.Code(CodeOAuthExchange).
			With("status", resp.StatusCode).
			Errorf("token refresh failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return oops.Code(CodeOAuthExchange).Wrapf(err, "parse refresh response")
	}

	tokens.AccessToken = result.AccessToken
	if result.RefreshToken != "" {
		tokens.RefreshToken = result.RefreshToken
	}
	tokens.ExpiresAt = 0
	if result.ExpiresIn > 0 {
		tokens.ExpiresAt = time.Now().Unix() + result.ExpiresIn
	}
	return nil
}
