package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"golang.org/x/oauth2"

	"github.com/decent-client/launcher/internal/core"
)

// Exchange runs a delivered redirect result through the full token chain:
// Microsoft code exchange, Xbox user auth, XSTS, Minecraft login, entitlement
// check and profile fetch. The delivered state must match the flow's CSRF
// state before any network call is made. The chain is all-or-nothing and
// never retries; any step failure aborts the attempt and the caller restarts
// from a fresh Flow.
//
// The returned record is not yet persisted and not active; activation is
// decided by the store on save.
func (f *Flow) Exchange(ctx context.Context, code, state string) (*core.AccountRecord, error) {
	if state != f.state {
		return nil, oops.Code(CodeCsrfMismatch).Errorf("authorization response state does not match the request state")
	}

	microsoft, err := f.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	slog.Debug("microsoft token obtained", "expires_at", microsoft.ExpiresAt)

	userAuth, err := f.api.UserAuth(ctx, microsoft.AccessToken)
	if err != nil {
		return nil, err
	}
	userHash := userAuth.UserHash()

	xsts, err := f.api.Authorize(ctx, userAuth.Token)
	if err != nil {
		return nil, err
	}
	// XSTS responses sometimes omit the uhs claim; the one from user auth
	// stands in.
	if hash := xsts.UserHash(); hash != "" {
		userHash = hash
	}

	login, err := f.api.LoginWithXbox(ctx, userHash, xsts.Token)
	if err != nil {
		return nil, err
	}
	minecraft := core.MinecraftTokens{
		AccessToken: login.AccessToken,
		Username:    login.Username,
	}
	if login.ExpiresIn > 0 {
		minecraft.ExpiresAt = time.Now().Unix() + login.ExpiresIn
	}

	if _, err := f.api.Entitlements(ctx, minecraft.AccessToken); err != nil {
		return nil, err
	}

	profile, err := f.api.Profile(ctx, minecraft.AccessToken)
	if err != nil {
		return nil, err
	}
	slog.Debug("minecraft profile fetched", "name", profile.Name)

	return &core.AccountRecord{
		UUID:       canonicalUUID(profile.ID),
		Username:   profile.Name,
		ObtainedAt: time.Now().Unix(),
		Microsoft:  *microsoft,
		Xbox: core.XboxTokens{
			UserToken: userAuth.Token,
			XSTSToken: xsts.Token,
			UserHash:  userHash,
		},
		Minecraft: minecraft,
	}, nil
}

// exchangeCode redeems the authorization code at the token endpoint with the
// PKCE verifier.
func (f *Flow) exchangeCode(ctx context.Context, code string) (*core.MicrosoftTokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := f.oauth.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_client" {
			return nil, oops.Code(CodeInvalidClient).Wrapf(err,
				"the authorization server rejected the client credentials (invalid_client); "+
					"configure the application registration as a public client, or provide its secret via the %s environment variable", clientSecretEnv)
		}
		return nil, oops.Code(CodeOAuthExchange).Wrapf(err, "exchange authorization code")
	}
	if token.RefreshToken == "" {
		return nil, oops.Code(CodeMissingRefreshToken).Errorf("token response did not include a refresh token; was the offline_access scope granted?")
	}

	microsoft := &core.MicrosoftTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		microsoft.ExpiresAt = token.Expiry.Unix()
	}
	return microsoft, nil
}

// canonicalUUID turns the undashed profile id into the dashed RFC 4122 form
// used as the store key. An unparsable id is kept as-is.
func canonicalUUID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}
