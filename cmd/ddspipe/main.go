// Command ddspipe wires the routing core together: configuration,
// metrics, payload pool, participants/discovery databases, the pipe
// controller, and the status dashboard. Grounded on
// cmd/dmr-nexus/main.go's wiring order (logger -> config -> metrics ->
// core components -> web server -> signal-driven shutdown), re-themed
// from DMR master/peer/bridge to the pipe's own component set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/config"
	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/metrics"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/pipe"
	"github.com/ddspipe/ddspipe-go/pkg/track"
	"github.com/ddspipe/ddspipe-go/pkg/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file (default search: ./ddspipe.yaml, ./configs, /etc/ddspipe)")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	webEnabled := flag.Bool("web", false, "Enable the status dashboard")
	webPort := flag.Int("web-port", 8080, "Status dashboard port")
	metricsPort := flag.Int("metrics-port", 9090, "Prometheus metrics port")
	metricsEnabled := flag.Bool("metrics", false, "Enable the Prometheus metrics endpoint")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ddspipe %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})
	log.Info("Starting ddspipe",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		log.Error("Failed to resolve configuration", logger.Error(err))
		os.Exit(1)
	}

	if *validateOnly {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	metricsCollector := metrics.NewCollector()

	if *metricsEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{Enabled: true, Port: *metricsPort, Path: "/metrics"},
				metricsCollector,
				log.WithComponent("metrics"),
			)
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
		log.Info("Prometheus metrics server started", logger.Int("port", *metricsPort))
	}

	pool := payload.NewPool()
	participants := participant.NewDatabase()
	discoveryDB := discovery.NewDatabase()
	dispatcher := track.NewWorkerPool(resolved.Threads)

	controller := pipe.New(resolved, participants, discoveryDB, pool, dispatcher, log.WithComponent("pipe"))

	discoveryDB.Subscribe(func(evt discovery.Event) {
		switch evt.Type {
		case discovery.Discovered:
			metricsCollector.EndpointDiscovered(evt.Endpoint.GUID)
		case discovery.Removed:
			metricsCollector.EndpointRemoved(evt.Endpoint.GUID)
		}
	})

	if resolved.InitEnabled {
		if err := controller.Enable(); err != nil {
			log.Error("Failed to enable pipe", logger.Error(err))
			os.Exit(1)
		}
	}

	var webServer *web.Server
	if *webEnabled {
		webServer = web.NewServer(web.Config{Enabled: true, Host: "0.0.0.0", Port: *webPort}, log.WithComponent("web")).
			WithParticipants(participants).
			WithController(controller).
			WithDiscovery(discoveryDB)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Web server error", logger.Error(err))
			}
		}()
		log.Info("Status dashboard started", logger.Int("port", *webPort))
	}

	if *configFile != "" {
		watcher, err := config.Watch(*configFile, 500*time.Millisecond, log.WithComponent("config"), func(newCfg *config.Configuration) {
			newResolved, err := newCfg.Resolve()
			if err != nil {
				log.Error("Reloaded configuration is invalid, keeping previous", logger.Error(err))
				return
			}
			if err := controller.Reload(newResolved); err != nil {
				log.Error("Failed to apply reloaded configuration", logger.Error(err))
			}
		})
		if err != nil {
			log.Warn("Configuration hot-reload disabled", logger.Error(err))
		} else {
			defer func() {
				if err := watcher.Close(); err != nil {
					log.Warn("Error closing configuration watcher", logger.Error(err))
				}
			}()
		}
	}

	log.Info("ddspipe initialized", logger.Int("bridges", controller.BridgeCount()))

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.String("signal", sig.String()))

	cancel()
	wg.Wait()

	log.Info("ddspipe stopped")
}
