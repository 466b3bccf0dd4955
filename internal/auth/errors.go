package auth

import (
	"github.com/samber/oops"
)

// Stable error codes surfaced across the launcher boundary. UIs use the code
// to tell user-initiated outcomes (LOGIN_CANCELLED, CSRF_MISMATCH) apart from
// network failures before deciding what to show.
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeCsrfMismatch        = "CSRF_MISMATCH"
	CodeLoginCancelled      = "LOGIN_CANCELLED"
	CodeMissingAuthCode     = "MISSING_AUTH_CODE"
	CodeOAuthExchange       = "OAUTH_EXCHANGE"
	CodeInvalidClient       = "INVALID_CLIENT"
	CodeMissingRefreshToken = "MISSING_REFRESH_TOKEN"
)

// ErrorCode returns the stable code attached to err, or "" when it carries
// none. Codes from the api and core packages pass through unchanged.
func ErrorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}
