// Package api is the client for the Xbox Live and Minecraft Services
// endpoints that follow the Microsoft token exchange.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Stable error codes for chain steps.
const (
	CodeHTTPStatus          = "HTTP_STATUS"
	CodeMissingXboxUserHash = "MISSING_XBOX_USER_HASH"
	CodeNoEntitlements      = "NO_ENTITLEMENTS"
)

const (
	xboxUserAuthURL   = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL       = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcLoginURL        = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcEntitlementsURL = "https://api.minecraftservices.com/entitlements/mcstore"
	mcProfileURL      = "https://api.minecraftservices.com/minecraft/profile"
)

// Client performs the Xbox user auth, XSTS, Minecraft login, entitlement and
// profile steps. A non-success status fails the step outright; nothing is
// retried.
type Client struct {
	httpClient *http.Client

	userAuthURL     string
	xstsURL         string
	loginURL        string
	entitlementsURL string
	profileURL      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL routes every endpoint under one base URL, keeping the
// well-known paths. Used to point the client at a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimRight(base, "/")
		c.userAuthURL = base + "/user/authenticate"
		c.xstsURL = base + "/xsts/authorize"
		c.loginURL = base + "/authentication/login_with_xbox"
		c.entitlementsURL = base + "/entitlements/mcstore"
		c.profileURL = base + "/minecraft/profile"
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		userAuthURL:     xboxUserAuthURL,
		xstsURL:         xstsAuthURL,
		loginURL:        mcLoginURL,
		entitlementsURL: mcEntitlementsURL,
		profileURL:      mcProfileURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type XboxAuthRequest struct {
	Properties   XboxAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

type XboxAuthProperties struct {
	AuthMethod string   `json:"AuthMethod,omitempty"`
	SiteName   string   `json:"SiteName,omitempty"`
	RpsTicket  string   `json:"RpsTicket,omitempty"`
	SandboxId  string   `json:"SandboxId,omitempty"`
	UserTokens []string `json:"UserTokens,omitempty"`
}

type XboxAuthResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

// UserHash returns the first uhs claim, or "" when the response carried none.
func (r *XboxAuthResponse) UserHash() string {
	if len(r.DisplayClaims.XUI) == 0 {
		return ""
	}
	return r.DisplayClaims.XUI[0].UHS
}

type MinecraftLoginRequest struct {
	IdentityToken       string `json:"identityToken"`
	EnsureLegacyEnabled bool   `json:"ensureLegacyEnabled"`
}

type MinecraftLoginResponse struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type EntitlementsResponse struct {
	Items []json.RawMessage `json:"items"`
}

type MinecraftProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserAuth exchanges a Microsoft access token for an Xbox Live user token.
func (c *Client) UserAuth(ctx context.Context, msAccessToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			AuthMethod: "RPS",
			SiteName:   "user.auth.xboxlive.com",
			RpsTicket:  "d=" + msAccessToken,
		},
		RelyingParty: "http://auth.xboxlive.com",
		TokenType:    "JWT",
	}

	var result XboxAuthResponse
	if err := c.doJSON(ctx, "xbox user authentication", http.MethodPost, c.userAuthURL, reqBody, xblHeaders(), &result); err != nil {
		return nil, err
	}
	if result.UserHash() == "" {
		return nil, oops.Code(CodeMissingXboxUserHash).Errorf("xbox user authentication returned no user hash")
	}
	return &result, nil
}

// Authorize exchanges an Xbox Live user token for an XSTS token scoped to
// Minecraft Services. The response may omit the uhs claim; callers fall back
// to the one from UserAuth.
func (c *Client) Authorize(ctx context.Context, xboxUserToken string) (*XboxAuthResponse, error) {
	reqBody := XboxAuthRequest{
		Properties: XboxAuthProperties{
			SandboxId:  "RETAIL",
			UserTokens: []string{xboxUserToken},
		},
		RelyingParty: "rp://api.minecraftservices.com/",
		TokenType:    "JWT",
	}

	var result XboxAuthResponse
	if err := c.doJSON(ctx, "xsts authorization", http.MethodPost, c.xstsURL, reqBody, xblHeaders(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LoginWithXbox exchanges the XSTS token and user hash for a Minecraft
// Services bearer token.
func (c *Client) LoginWithXbox(ctx context.Context, uhs, xstsToken string) (*MinecraftLoginResponse, error) {
	reqBody := MinecraftLoginRequest{
		IdentityToken:       fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken),
		EnsureLegacyEnabled: true,
	}

	var result MinecraftLoginResponse
	if err := c.doJSON(ctx, "minecraft login", http.MethodPost, c.loginURL, reqBody, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Entitlements verifies the account owns the game.
func (c *Client) Entitlements(ctx context.Context, accessToken string) (*EntitlementsResponse, error) {
	var result EntitlementsResponse
	if err := c.doJSON(ctx, "entitlement check", http.MethodGet, c.entitlementsURL, nil, bearerHeaders(accessToken), &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, oops.Code(CodeNoEntitlements).Errorf("account has no Minecraft entitlements")
	}
	return &result, nil
}

// Profile fetches the canonical profile id and display name.
func (c *Client) Profile(ctx context.Context, accessToken string) (*MinecraftProfile, error) {
	var result MinecraftProfile
	if err := c.doJSON(ctx, "profile fetch", http.MethodGet, c.profileURL, nil, bearerHeaders(accessToken), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doJSON is the one request helper behind every chain step: optional JSON
// body, extra headers, typed JSON response. A non-2xx status is a hard
// failure carrying the step name and the response body.
func (c *Client) doJSON(ctx context.Context, step, method, url string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return oops.With("step", step).Wrapf(err, "build %s request", step)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.With("step", step).Wrapf(err, "%s request failed", step)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return oops.Code(CodeHTTPStatus).
			With("step", step).
			With("status", resp.StatusCode).
			Errorf("%s failed (%d): %s", step, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.With("step", step).Wrapf(err, "parse %s response", step)
	}
	return nil
}

func xblHeaders() map[string]string {
	return map[string]string{"x-xbl-contract-version": "1"}
}

func bearerHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
