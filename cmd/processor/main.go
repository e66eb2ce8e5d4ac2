// Command processor is the single long-running service binary that owns
// C1-C11: camera supervision, the Frame Bus, the pipeline cache, the DAG
// executor (with the model registry, hybrid tracker, event sink and
// notifier wired in as its tools), the config-invalidation listener, the
// WebSocket broadcaster, and periodic metrics logging.
//
// Grounded on the teacher's cmd/orbo/main.go for the errc-channel +
// context.WithCancel + sync.WaitGroup + signal.Notify(SIGINT, SIGTERM)
// graceful-shutdown idiom.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"visionmesh/internal/apiclient"
	"visionmesh/internal/bus"
	"visionmesh/internal/config"
	"visionmesh/internal/eventsink"
	"visionmesh/internal/executor"
	"visionmesh/internal/logging"
	"visionmesh/internal/metrics"
	"visionmesh/internal/model"
	"visionmesh/internal/models"
	"visionmesh/internal/nodes"
	"visionmesh/internal/notify"
	"visionmesh/internal/pipelinecache"
	"visionmesh/internal/supervisor"
	"visionmesh/internal/wsbroadcast"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("info")

	api := apiclient.New(cfg.APIGatewayURL)

	b := bus.New(cfg.AMQPAddress(), logging.Component(log, "bus"))

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if err := b.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connecting to frame bus")
	}
	defer b.Close()

	sink, err := eventsink.New(cfg.EventsDBURL, cfg.MediaPath, b, logging.Component(log, "eventsink"))
	if err != nil {
		log.Fatal().Err(err).Msg("initializing event sink")
	}
	defer sink.Close()

	modelRegistry := models.NewRegistry(cfg.ModelsPath, defaultModelEndpoint(cfg), logging.Component(log, "models"))
	nodeRegistry := nodes.NewRegistry()
	cache := pipelinecache.New(api, logging.Component(log, "pipelinecache"))
	notifier := notify.New(logging.Component(log, "notify"))

	exec := executor.New(executor.Options{
		Cache:             cache,
		Registry:          nodeRegistry,
		Log:               logging.Component(log, "executor"),
		MaxProcessingTime: time.Duration(cfg.MaxProcessingTimeSeconds) * time.Second,
		DefaultEndpoint:   defaultModelEndpoint(cfg),
		ModelProvider:     executor.NewModelProvider(modelRegistry),
		EventSink:         sink,
		Notifier:          notifier,
		IdentityMatcher:   executor.NewIdentityMatcher(api),
	})

	sup := supervisor.New(api, b, logging.Component(log, "supervisor"), time.Duration(cfg.ReconcileIntervalSeconds)*time.Second)

	hub := wsbroadcast.NewHub(logging.Component(log, "wsbroadcast"))
	wsHandler := wsbroadcast.NewHandler(hub)

	// Camera supervisor reconciliation loop.
	wg.Add(1)
	go func() {
		defer wg.Done()
		sup.Run(ctx)
	}()

	// Frame consumer: one per process, runs the DAG executor to completion
	// per frame, acking unconditionally after Execute returns.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.ConsumeFrames(ctx, func(fm model.FrameMessage) error {
			return exec.Execute(ctx, fm)
		}); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("frame consumer stopped")
			errc <- err
		}
	}()

	// Config-invalidation listener: its own long-lived subscriber.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.ConsumeConfigEvents(ctx, cache.Invalidate); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("config event consumer stopped")
			errc <- err
		}
	}()

	// WebSocket fan-out listener: its own long-lived subscriber.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := wsbroadcast.Run(ctx, b, hub); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("ws broadcaster stopped")
			errc <- err
		}
	}()

	// Periodic metrics logging, per C11.
	wg.Add(1)
	go func() {
		defer wg.Done()
		metrics.RunPeriodicLogger(ctx, log, time.Duration(cfg.PerformanceLogInterval)*time.Second, func() []metrics.Snapshot {
			snaps := sup.Stats()
			return append(snaps, exec.Stats())
		})
	}()

	// WebSocket client upgrade endpoint.
	mux := http.NewServeMux()
	mux.Handle("/ws/events/", wsHandler)
	httpSrv := &http.Server{Addr: cfg.WSListenAddr, Handler: mux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ws http server stopped")
			errc <- err
		}
	}()

	log.Info().Str("listen", cfg.WSListenAddr).Msg("processor started")

	<-errc
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	wg.Wait()
	log.Info().Msg("processor exited")
}

func defaultModelEndpoint(cfg *config.Config) string {
	if cfg.UseGPU {
		return "http://model-service:8000"
	}
	return "http://model-service-cpu:8000"
}
