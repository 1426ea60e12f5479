package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/notify"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/server"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

// statusInterval is how often a full status is pushed without any change.
const statusInterval = 3 * time.Second

// Recorder is the capture controller as seen by the HTTP layer.
type Recorder interface {
	server.Capture
	Artifact() *capture.Artifact
	Subscribe() (<-chan capture.Status, func())
}

// ServerDeps groups everything the HTTP server needs.
type ServerDeps struct {
	Config          *config.Config
	Recorder        Recorder
	Submitter       server.Submitter
	Devices         server.DeviceSelector
	Webhook         *notify.WebhookNotifier
	EventLog        string
	Hub             *server.Hub  // Shared with the failure notifier; created when nil
	Metrics         http.Handler // Optional /metrics handler
	Version         *VersionChecker
	FFmpegAvailable bool
	ListDevices     func() []audio.Device
}

// Server is an HTTP server exposing the capture controller to the intake page.
type Server struct {
	config          *config.Config
	recorder        Recorder
	submitter       server.Submitter
	commands        *server.CommandHandler
	hub             *server.Hub
	eventLog        string
	metrics         http.Handler
	version         *VersionChecker
	ffmpegAvailable bool
	listDevices     func() []audio.Device
}

// NewServer returns a new Server wired to the given collaborators.
func NewServer(deps ServerDeps) *Server {
	list := deps.ListDevices
	if list == nil {
		list = audio.ListDevices
	}
	version := deps.Version
	if version == nil {
		version = NewVersionChecker(githubAPI)
	}
	hub := deps.Hub
	if hub == nil {
		hub = server.NewHub()
	}

	return &Server{
		config:    deps.Config,
		recorder:  deps.Recorder,
		submitter: deps.Submitter,
		commands: server.NewCommandHandler(server.HandlerDeps{
			Config:    deps.Config,
			Capture:   deps.Recorder,
			Submitter: deps.Submitter,
			Devices:   deps.Devices,
			Webhook:   deps.Webhook,
			EventLog:  deps.EventLog,
			ListInput: list,
		}),
		hub:             hub,
		eventLog:        deps.EventLog,
		metrics:         deps.Metrics,
		version:         version,
		ffmpegAvailable: deps.FFmpegAvailable,
		listDevices:     list,
	}
}

// hubNotifier returns a notifier that pushes failure notices to every connected page.
func hubNotifier(hub *server.Hub) capture.Notifier {
	return notify.Func(func(_ context.Context, n capture.Notice) {
		msg := types.WSNoticeResponse{
			Type:      "notice",
			Session:   n.Session,
			Reason:    string(n.Reason),
			Message:   notify.Message(n.Reason),
			Timestamp: n.At.UTC().Format(time.RFC3339),
		}
		if n.Err != nil {
			msg.Error = n.Err.Error()
		}
		hub.Broadcast(msg)
	})
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	// Only the writer goroutine writes to the connection. send is never
	// closed because async command handlers may still reply after the
	// client goes away; quit stops the writer instead.
	send := make(chan any, server.SendBuffer)
	done := make(chan struct{})
	quit := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	go s.runWebSocketWriter(conn, send, quit)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
	close(quit)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any, quit <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("websocket close error", "error", err)
		}
	}()
	for {
		select {
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		case <-quit:
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in websocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes capture status: every change from the
// controller, on request, and periodically. It returns when the reader ends.
func (s *Server) runWebSocketEventLoop(send chan<- any, done, statusUpdate <-chan struct{}) {
	updates, unsubscribe := s.recorder.Subscribe()
	defer unsubscribe()
	defer s.hub.Register(send)()

	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus(s.recorder.Status())) {
		return
	}

	for {
		var status capture.Status
		select {
		case <-done:
			return
		case status = <-updates:
		case <-statusUpdate:
			status = s.recorder.Status()
		case <-statusTicker.C:
			status = s.recorder.Status()
		}
		if !trySend(s.buildWSStatus(status)) {
			return
		}
	}
}

// buildWSStatus returns the WebSocket status response for a capture status.
func (s *Server) buildWSStatus(status capture.Status) types.WSStatusResponse {
	cfg := s.config.Snapshot()
	return types.WSStatusResponse{
		Type:            "status",
		FFmpegAvailable: s.ffmpegAvailable,
		Capture:         status,
		Container:       types.Container(cfg.Capture.Container),
		UploadMode:      cfg.Upload.Mode,
		AudioInput:      cfg.Audio.Input,
		Devices:         s.listDevices(),
		Version:         s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Intake page transport (origin checked)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Capture API (API key auth)
	mux.HandleFunc("POST /api/capture/start", s.apiKeyAuth(s.handleAPIStart))
	mux.HandleFunc("POST /api/capture/pause", s.apiKeyAuth(s.handleAPIPause))
	mux.HandleFunc("POST /api/capture/resume", s.apiKeyAuth(s.handleAPIResume))
	mux.HandleFunc("POST /api/capture/stop", s.apiKeyAuth(s.handleAPIStop))
	mux.HandleFunc("POST /api/capture/reset", s.apiKeyAuth(s.handleAPIReset))
	mux.HandleFunc("GET /api/capture/status", s.apiKeyAuth(s.handleAPIStatus))
	mux.HandleFunc("GET /api/capture/artifact", s.apiKeyAuth(s.handleAPIArtifact))
	mux.HandleFunc("POST /api/capture/submit", s.apiKeyAuth(s.handleAPISubmit))
	mux.HandleFunc("GET /api/devices", s.apiKeyAuth(s.handleAPIDevices))
	mux.HandleFunc("GET /api/events", s.apiKeyAuth(s.handleAPIEvents))
	mux.HandleFunc("GET /api/version", s.apiKeyAuth(s.handleAPIVersion))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth returns middleware for API key authentication.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.GetAPIKey()
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	cfg := s.config.Snapshot()
	addr := net.JoinHostPort(cfg.System.Host, strconv.Itoa(cfg.System.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting web server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	return nil
}
