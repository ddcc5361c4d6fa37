package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/webhookcatcher/internal/auth"
	"git.home.luguber.info/inful/webhookcatcher/internal/config"
	derrors "git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	handlers "git.home.luguber.info/inful/webhookcatcher/internal/server/handlers"
	smw "git.home.luguber.info/inful/webhookcatcher/internal/server/middleware"
)

// Server serves the webhookcatcher HTTP API.
type Server struct {
	cfg          *config.Config
	deps         Dependencies
	errorAdapter *derrors.HTTPErrorAdapter

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr

	// Access gates
	adminGate    *auth.AdminGate
	passwordGate *auth.PasswordGate

	// Handler modules
	captureHandlers    *handlers.CaptureHandlers
	browseHandlers     *handlers.BrowseHandlers
	adminHandlers      *handlers.AdminHandlers
	monitoringHandlers *handlers.MonitoringHandlers

	// middleware chain
	mchain func(http.Handler) http.Handler
	router http.Handler
}

// New constructs a new HTTP server wiring instance.
func New(cfg *config.Config, deps Dependencies) *Server {
	deps.Recorder = metrics.OrNoop(deps.Recorder)

	s := &Server{
		cfg:          cfg,
		deps:         deps,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
		adminGate:    auth.NewAdminGate(cfg.Auth.AdminToken),
		passwordGate: auth.NewPasswordGate(cfg.Auth.BrowsePassword),
	}

	s.captureHandlers = handlers.NewCaptureHandlers(deps.Capturer, cfg.Server.PublicURL, nil)
	s.browseHandlers = handlers.NewBrowseHandlers(deps.Store, headerpolicy.Sensitive(cfg.Headers.Sensitive...))
	s.adminHandlers = handlers.NewAdminHandlers(deps.Replayer, deps.Store, deps.Recorder)
	s.monitoringHandlers = handlers.NewMonitoringHandlers(deps.Store, handlers.Features{
		ForwardingURL:        cfg.Forwarding.URL,
		ForwardingToken:      cfg.Forwarding.Token != "",
		AdminProtected:       s.adminGate.Enabled(),
		PasswordProtected:    s.passwordGate.Enabled(),
		NotificationsEnabled: cfg.Notify.Enabled(),
	})

	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	s.router = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listen address and serves in the background.
// Binding happens synchronously so address conflicts surface as an error.
func (s *Server) Start(ctx context.Context) error {
	auth.WarnIfOpen(slog.Default(), s.adminGate, s.passwordGate)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("http startup failed: listen %s: %w", s.cfg.Server.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.captureHandlers.SetLocalAddr(ln.Addr())

	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return s.startServerWithListener("api", srv, ln)
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

// startServerWithListener serves srv on a pre-bound listener in its own goroutine.
func (s *Server) startServerWithListener(kind string, srv *http.Server, ln net.Listener) error {
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s server error", kind), "error", err)
		}
	}()
	return nil
}
