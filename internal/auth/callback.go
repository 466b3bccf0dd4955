package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/samber/oops"
)

const callbackPage = "You are signed in. You can close this tab and return to the launcher."

// CallbackServer is a temporary loopback HTTP listener that observes the
// OAuth redirect for CLI sign-ins and feeds a Capture. It serves exactly one
// authentication attempt and is shut down afterwards.
type CallbackServer struct {
	capture     *Capture
	port        int
	server      *http.Server
	listener    net.Listener
	redirectURL string
}

// NewCallbackServer creates a server feeding capture. Port 0 picks a random
// free port; callers with a fixed registered redirect pass that port instead.
func NewCallbackServer(capture *Capture, port int) *CallbackServer {
	return &CallbackServer{capture: capture, port: port}
}

// Start begins listening and returns the redirect URL to register in the
// authorization request. The server stops when ctx is cancelled.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return "", oops.Wrapf(err, "start callback listener on port %d", s.port)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.redirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Warn("callback server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.redirectURL, nil
}

// RedirectURL returns the URL handed out by Start.
func (s *CallbackServer) RedirectURL() string {
	return s.redirectURL
}

// Stop shuts the listener down. If no redirect arrived first, the awaiting
// task is unblocked with the cancellation failure.
func (s *CallbackServer) Stop() {
	if s.server != nil {
		_ = s.server.Close()
	}
	s.capture.Cancel()
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	raw := fmt.Sprintf("http://127.0.0.1:%d%s", s.port, r.URL.String())
	if !s.capture.ObserveNavigation(s.redirectURL, raw) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, callbackPage)
}
