package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Result is the outcome an observer delivers for one authentication attempt:
// an authorization code with its state, or the reason the attempt ended
// without one.
type Result struct {
	Code  string
	State string
	Err   error
}

// Capture is the single-use handoff between whatever observes the redirect
// (webview navigation hook, loopback listener) and the task awaiting the
// authorization code. The first Deliver wins; later calls are dropped.
type Capture struct {
	once sync.Once
	ch   chan Result
}

func NewCapture() *Capture {
	return &Capture{ch: make(chan Result, 1)}
}

// Deliver hands the result to the awaiting task. Only the first call has any
// effect.
func (c *Capture) Deliver(result Result) {
	c.once.Do(func() { c.ch <- result })
}

// Cancel delivers the window-closed failure unless a result already arrived.
// Observers call this when the authentication surface goes away so the
// awaiting task is never left suspended.
func (c *Capture) Cancel() {
	c.Deliver(Result{Err: oops.Code(CodeLoginCancelled).Errorf("authentication window closed before completion")})
}

// Await blocks until a result is delivered or ctx ends.
func (c *Capture) Await(ctx context.Context) (code, state string, err error) {
	select {
	case result := <-c.ch:
		return result.Code, result.State, result.Err
	case <-ctx.Done():
		return "", "", oops.Code(CodeLoginCancelled).Wrapf(ctx.Err(), "authentication cancelled")
	}
}

// ObserveNavigation inspects one navigated URL. A URL outside the redirect
// prefix is not for us and the navigation should proceed; a matching URL
// resolves the capture and reports handled.
func (c *Capture) ObserveNavigation(redirectPrefix, raw string) (handled bool) {
	result, ok := ParseRedirect(redirectPrefix, raw)
	if !ok {
		return false
	}
	c.Deliver(result)
	return true
}

// ParseRedirect extracts the authorization code and state from a redirect
// navigation. Matching is on prefix, not exact URL. Some providers place the
// parameters in the fragment rather than the query string, so both are
// consulted. A matching URL without a code yields the missing-code failure.
func ParseRedirect(redirectPrefix, raw string) (Result, bool) {
	if !strings.HasPrefix(raw, redirectPrefix) {
		return Result{}, false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Result{Err: oops.Code(CodeMissingAuthCode).Wrapf(err, "parse redirect URL")}, true
	}

	query := parsed.Query()
	code := query.Get("code")
	state := query.Get("state")

	if (code == "" || state == "") && parsed.Fragment != "" {
		if fragment, err := url.ParseQuery(parsed.Fragment); err == nil {
			if code == "" {
				code = fragment.Get("code")
			}
			if state == "" {
				state = fragment.Get("state")
			}
		}
	}

	if code == "" {
		return Result{Err: oops.Code(CodeMissingAuthCode).Errorf("missing authorization code")}, true
	}
	return Result{Code: code, State: state}, true
}
