package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(WithBaseURL(ts.URL))
}

func TestUserAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/user/authenticate", r.URL.Path)
		assert.Equal(t, "1", r.Header.Get("x-xbl-contract-version"))

		var req XboxAuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "RPS", req.Properties.AuthMethod)
		assert.Equal(t, "user.auth.xboxlive.com", req.Properties.SiteName)
		assert.Equal(t, "d=ms-token", req.Properties.RpsTicket)
		assert.Equal(t, "JWT", req.TokenType)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"Token":         "xbl-token",
			"DisplayClaims": map[string]any{"xui": []map[string]string{{"uhs": "the-hash"}}},
		})
	})

	resp, err := client.UserAuth(context.Background(), "ms-token")
	require.NoError(t, err)
	assert.Equal(t, "xbl-token", resp.Token)
	assert.Equal(t, "the-hash", resp.UserHash())
}

func TestUserAuthMissingUserHash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"Token":         "xbl-token",
			"DisplayClaims": map[string]any{"xui": []map[string]string{}},
		})
	})

	_, err := client.UserAuth(context.Background(), "ms-token")
	require.Error(t, err)
	assert.Equal(t, CodeMissingXboxUserHash, errCode(err))
}

func TestAuthorizeMayOmitUserHash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xsts/authorize", r.URL.Path)

		var req XboxAuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "RETAIL", req.Properties.SandboxId)
		assert.Equal(t, []string{"xbl-token"}, req.Properties.UserTokens)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"Token": "xsts-token"})
	})

	resp, err := client.Authorize(context.Background(), "xbl-token")
	require.NoError(t, err)
	assert.Equal(t, "xsts-token", resp.Token)
	assert.Empty(t, resp.UserHash())
}

func TestEntitlementsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer mc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})

	_, err := client.Entitlements(context.Background(), "mc-token")
	require.Error(t, err)
	assert.Equal(t, CodeNoEntitlements, errCode(err))
}

func TestProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/minecraft/profile", r.URL.Path)
		assert.Equal(t, "Bearer mc-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "abc123", "name": "Notch"})
	})

	profile, err := client.Profile(context.Background(), "mc-token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", profile.ID)
	assert.Equal(t, "Notch", profile.Name)
}

func TestNonSuccessStatusNamesTheStep(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"XErr":2148916238}`))
	})

	_, err := client.Authorize(context.Background(), "xbl-token")
	require.Error(t, err)
	assert.Equal(t, CodeHTTPStatus, errCode(err))
	assert.Contains(t, err.Error(), "xsts authorization")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "XErr")
}
