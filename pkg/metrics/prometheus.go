package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	// Discovery metrics
	output.WriteString("# HELP ddspipe_endpoints_discovered_total Total endpoints discovered\n")
	output.WriteString("# TYPE ddspipe_endpoints_discovered_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_endpoints_discovered_total %d\n", h.collector.GetEndpointsDiscovered()))

	output.WriteString("# HELP ddspipe_endpoints_removed_total Total endpoints removed\n")
	output.WriteString("# TYPE ddspipe_endpoints_removed_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_endpoints_removed_total %d\n", h.collector.GetEndpointsRemoved()))

	output.WriteString("# HELP ddspipe_endpoints_active Number of currently known endpoints\n")
	output.WriteString("# TYPE ddspipe_endpoints_active gauge\n")
	output.WriteString(fmt.Sprintf("ddspipe_endpoints_active %d\n", h.collector.GetActiveEndpoints()))

	// Bridge/track metrics
	output.WriteString("# HELP ddspipe_bridges_active Number of currently live bridges\n")
	output.WriteString("# TYPE ddspipe_bridges_active gauge\n")
	output.WriteString(fmt.Sprintf("ddspipe_bridges_active %d\n", h.collector.GetActiveBridges()))

	output.WriteString("# HELP ddspipe_tracks_active Number of currently live tracks\n")
	output.WriteString("# TYPE ddspipe_tracks_active gauge\n")
	output.WriteString(fmt.Sprintf("ddspipe_tracks_active %d\n", h.collector.GetActiveTracks()))

	output.WriteString("# HELP ddspipe_samples_routed_total Total samples forwarded to a writer\n")
	output.WriteString("# TYPE ddspipe_samples_routed_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_samples_routed_total %d\n", h.collector.GetSamplesRouted()))

	output.WriteString("# HELP ddspipe_samples_dropped_total Total samples dropped by downsampling or rate limiting\n")
	output.WriteString("# TYPE ddspipe_samples_dropped_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_samples_dropped_total %d\n", h.collector.GetSamplesDropped()))

	output.WriteString("# HELP ddspipe_writers_removed_total Total writers removed from a track after a fatal write\n")
	output.WriteString("# TYPE ddspipe_writers_removed_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_writers_removed_total %d\n", h.collector.GetWritersRemoved()))

	// Payload pool metrics
	output.WriteString("# HELP ddspipe_payload_allocations_total Total payload pool allocations\n")
	output.WriteString("# TYPE ddspipe_payload_allocations_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_payload_allocations_total %d\n", h.collector.GetPayloadAllocations()))

	output.WriteString("# HELP ddspipe_payload_releases_total Total payload pool releases\n")
	output.WriteString("# TYPE ddspipe_payload_releases_total counter\n")
	output.WriteString(fmt.Sprintf("ddspipe_payload_releases_total %d\n", h.collector.GetPayloadReleases()))

	w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	// Start server
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
}
