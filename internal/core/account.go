// Package core contains the account data model and its file-backed store.
package core

import (
	"time"
)

// MicrosoftTokens holds the Microsoft identity platform tokens for an account.
// ExpiresAt is an absolute epoch-seconds timestamp; zero means unknown.
type MicrosoftTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Expired reports whether the access token is within buffer of its recorded
// expiry. Tokens without a recorded expiry never report as expired.
func (t *MicrosoftTokens) Expired(buffer time.Duration) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return time.Now().Add(buffer).Unix() >= t.ExpiresAt
}

// XboxTokens holds the Xbox Live user token, the XSTS token derived from it,
// and the user hash needed to build the Minecraft identity token.
type XboxTokens struct {
	UserToken string `json:"user_token"`
	XSTSToken string `json:"xsts_token"`
	UserHash  string `json:"uhs"`
}

// MinecraftTokens holds the Minecraft Services bearer token. Username is the
// name returned by login_with_xbox, which may differ from the profile name.
type MinecraftTokens struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
	Username    string `json:"username"`
}

// AccountRecord is one fully authenticated game identity. The uuid is the
// Minecraft profile id and is the store's primary key.
type AccountRecord struct {
	UUID       string          `json:"uuid"`
	Username   string          `json:"username"`
	ObtainedAt int64           `json:"obtained_at"`
	Microsoft  MicrosoftTokens `json:"microsoft"`
	Xbox       XboxTokens      `json:"xbox"`
	Minecraft  MinecraftTokens `json:"minecraft"`
	IsActive   bool            `json:"is_active"`
}

// AccountSummary is the token-free projection exposed outside the store
// boundary, e.g. to account pickers.
type AccountSummary struct {
	UUID       string `json:"uuid"`
	Username   string `json:"username"`
	ObtainedAt int64  `json:"obtainedAt"`
	IsActive   bool   `json:"isActive"`
}

// Summary projects the record into its caller-facing form.
func (a *AccountRecord) Summary() AccountSummary {
	return AccountSummary{
		UUID:       a.UUID,
		Username:   a.Username,
		ObtainedAt: a.ObtainedAt,
		IsActive:   a.IsActive,
	}
}
