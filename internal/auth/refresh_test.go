package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decent-client/launcher/internal/core"
)

func newRefreshServer(t *testing.T, handler http.HandlerFunc) *Refresher {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := tokenEndpoint
	tokenEndpoint = ts.URL
	t.Cleanup(func() { tokenEndpoint = old })

	return NewRefresher("test-client")
}

func TestRefreshNoOpWhileTokenValid(t *testing.T) {
	var requests atomic.Int32
	refresher := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	tokens := core.MicrosoftTokens{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
	require.NoError(t, refresher.Refresh(context.Background(), &tokens, false))

	assert.Zero(t, requests.Load())
	assert.Equal(t, "old-access", tokens.AccessToken)
}

func TestRefreshForceReplacesTokensInPlace(t *testing.T) {
	refresher := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.FormValue("client_id"))
		assert.Equal(t, "old-refresh", r.FormValue("refresh_token"))
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
		})
	})

	tokens := core.MicrosoftTokens{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
	require.NoError(t, refresher.Refresh(context.Background(), &tokens, true))

	assert.Equal(t, "new-access", tokens.AccessToken)
	assert.Equal(t, "new-refresh", tokens.RefreshToken)
	assert.Greater(t, tokens.ExpiresAt, time.Now().Unix())
}

func TestRefreshRunsWhenTokenExpired(t *testing.T) {
	var requests atomic.Int32
	refresher := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-access", "expires_in": 3600})
	})

	tokens := core.MicrosoftTokens{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-1 * time.Minute).Unix(),
	}
	require.NoError(t, refresher.Refresh(context.Background(), &tokens, false))

	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, "new-access", tokens.AccessToken)
	// The provider kept the refresh token; ours must survive.
	assert.Equal(t, "old-refresh", tokens.RefreshToken)
}

func TestRefreshAcceptsAnySuccessStatus(t *testing.T) {
	refresher := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-access", "expires_in": 3600})
	})

	tokens := core.MicrosoftTokens{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	}
	require.NoError(t, refresher.Refresh(context.Background(), &tokens, true))
	assert.Equal(t, "new-access", tokens.AccessToken)
}

func TestRefreshNonSuccessStatus(t *testing.T) {
	refresher := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	})

	tokens := core.MicrosoftTokens{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	}
	err := refresher.Refresh(context.Background(), &tokens, true)
	require.Error(t, err)
	assert.Equal(t, CodeOAuthExchange, ErrorCode(err))
	assert.Equal(t, "old-access", tokens.AccessToken)
}
