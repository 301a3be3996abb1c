package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/pipe"
)

// Config holds the web dashboard's own serving options. It is not part
// of the pipe's routing configuration surface (spec.md §6 excludes
// dashboard/tooling config as out of scope), so it is supplied directly
// by the entrypoint rather than read from pkg/config.
type Config struct {
	Enabled bool
	Host    string
	Port    int
}

// Server represents the web dashboard HTTP server
type Server struct {
	config Config
	logger *logger.Logger
	server *http.Server
	hub    *WebSocketHub
	api    *API
	addr   string
	mu     sync.RWMutex

	participants *participant.Database
	controller   *pipe.Controller
}

// spaHandler wraps an http.FileSystem to serve a Single Page Application.
// It tries to serve the requested file, and if not found, serves index.html instead.
// This is necessary for client-side routing (e.g., Vue Router with HTML5 history mode).
func spaHandler(fsys http.FileSystem) http.Handler {
	fileServer := http.FileServer(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Try to open the requested file
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}
		f, err := fsys.Open(path)
		if err == nil {
			// File exists, serve it normally
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		// File not found, serve index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// NewServer creates a new web server instance
func NewServer(cfg Config, log *logger.Logger) *Server {
	return &Server{
		config: cfg,
		logger: log,
		hub:    NewWebSocketHub(log),
		api:    NewAPI(log),
	}
}

// WithParticipants injects the Participants Database for API exposure
func (s *Server) WithParticipants(db *participant.Database) *Server {
	s.participants = db
	s.api.SetDeps(db, s.controller)
	return s
}

// WithController injects the Pipe Controller for API exposure
func (s *Server) WithController(c *pipe.Controller) *Server {
	s.controller = c
	s.api.SetDeps(s.participants, c)
	return s
}

// WithDiscovery subscribes the dashboard's activity feed to db, so
// /api/activity and the "discovery" WebSocket events reflect live
// discovery traffic.
func (s *Server) WithDiscovery(db *discovery.Database) *Server {
	db.Subscribe(func(evt discovery.Event) {
		s.api.RecordDiscoveryEvent(evt)
		s.hub.BroadcastDiscoveryEvent(evt)
	})
	return s
}

// Start starts the web server
func Start(ctx context.Context, cfg Config, log *logger.Logger) error {
	srv := NewServer(cfg, log)
	return srv.Start(ctx)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	// Start WebSocket hub
	go s.hub.Run(ctx)
	// Broadcast a lightweight heartbeat periodically so the UI can test realtime plumbing
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				s.hub.Broadcast(Event{
					Type:      "heartbeat",
					Timestamp: t,
					Data: map[string]interface{}{
						"clients": s.hub.GetClientCount(),
					},
				})
			}
		}
	}()

	// Create HTTP router
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// API endpoints
	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/participants", s.api.HandleParticipants)
	mux.HandleFunc("/api/participants/", s.api.HandleParticipantLookup)
	mux.HandleFunc("/api/bridges", s.api.HandleBridges)
	mux.HandleFunc("/api/activity", s.api.HandleActivity)

	// WebSocket endpoint
	mux.Handle("/ws", s.hub.Handler())

	// Try embedded static assets first (built into the binary via go:embed)
	if fsys, err := embeddedStaticFS(); err == nil && fsys != nil {
		s.logger.Info("Serving embedded frontend assets")
		mux.Handle("/", spaHandler(fsys))
	} else {
		// Fallback to filesystem directory
		staticDir := "frontend/dist"
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			s.logger.Info("Serving static frontend assets", logger.String("dir", staticDir))
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				// Clean the path and try to serve the requested file
				reqPath := filepath.Clean(r.URL.Path)
				// Disallow path traversal outside staticDir
				if reqPath == "/" {
					http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
					return
				}
				// Trim leading '/'
				if len(reqPath) > 0 && reqPath[0] == '/' {
					reqPath = reqPath[1:]
				}
				fullPath := filepath.Join(staticDir, reqPath)
				if fi, err := os.Stat(fullPath); err == nil && !fi.IsDir() {
					http.ServeFile(w, r, fullPath)
					return
				}
				// Fallback to index.html for SPA routes
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			})
		} else {
			s.logger.Info("No static frontend assets found; SPA not served", logger.String("dir", staticDir))
		}
	}

	// Determine address
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Create HTTP server
	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start listener to get actual address (especially for port 0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	// Store the actual address
	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Starting web server",
		logger.String("address", s.addr))

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

// GetAPI returns the API instance
func (s *Server) GetAPI() *API {
	return s.api
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "ddspipe",
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
