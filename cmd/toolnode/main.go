package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/configs"
	"github.com/droqlabs/toolnode/internal/app"
	"github.com/droqlabs/toolnode/internal/config"
	"github.com/droqlabs/toolnode/internal/dispatch"
	"github.com/droqlabs/toolnode/internal/engine"
	"github.com/droqlabs/toolnode/internal/events"
	"github.com/droqlabs/toolnode/internal/http/api"
	"github.com/droqlabs/toolnode/internal/http/health"
	"github.com/droqlabs/toolnode/internal/idempotency"
	"github.com/droqlabs/toolnode/internal/lifecycle"
	"github.com/droqlabs/toolnode/internal/log"
	"github.com/droqlabs/toolnode/internal/manifest"
	"github.com/droqlabs/toolnode/internal/msgbus"
	"github.com/droqlabs/toolnode/internal/ratelimit"
	"github.com/droqlabs/toolnode/internal/registry"
	"github.com/droqlabs/toolnode/internal/render"
	"github.com/droqlabs/toolnode/internal/startup"
	"github.com/droqlabs/toolnode/internal/timeutil"
)

func main() {
	embeddedManifest := flag.String("embedded-manifest", "", "Use embedded manifest from configs/ (filename)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	m, err := loadManifest(cfg, *embeddedManifest)
	if err != nil {
		logger.Error("load manifest failed", zap.Error(err))
		os.Exit(1)
	}

	reg := registry.New(logger)
	snap, err := registry.Build(m, registry.BuildOptions{Categories: cfg.Categories, Logger: logger})
	if err != nil {
		logger.Error("build registry failed", zap.Error(err))
		os.Exit(1)
	}
	reg.Swap(snap)
	for _, issue := range reg.Verify() {
		logger.Warn("manifest locator unresolved",
			zap.String("tool_id", issue.ToolID),
			zap.String("locator", issue.Locator),
		)
	}

	var cache *idempotency.Cache
	if m.Node.Idempotency.Enabled {
		ttl := timeutil.ParseDurationOrDefault(m.Node.Idempotency.TTL, time.Hour)
		cache = idempotency.NewCache(ttl, m.Node.Idempotency.MaxEntries)
	}

	var eventWriter events.Writer
	if cfg.ClickHouseDSN != "" {
		writer, chErr := events.NewClickHouseWriter(cfg.ClickHouseDSN, logger)
		if chErr != nil {
			logger.Error("clickhouse writer init failed, using log writer", zap.Error(chErr))
			eventWriter = events.NewLogWriter(logger)
		} else {
			eventWriter = writer
		}
	} else {
		eventWriter = events.NewLogWriter(logger)
	}
	defer eventWriter.Close()

	inflight := engine.NewInflight()
	eng := engine.New(inflight, logger)
	coordinator := lifecycle.NewCoordinator(inflight, cfg.DrainTimeout, logger)

	dispatcher := dispatch.New(dispatch.Options{
		Registry:         reg,
		Engine:           eng,
		Limiter:          ratelimit.New(),
		Cache:            cache,
		CacheKeyStrategy: m.Node.Idempotency.KeyStrategy,
		Events:           eventWriter,
		MaxConcurrent:    cfg.MaxConcurrent,
		DefaultTimeout:   cfg.DefaultTimeout,
		PreviewMaxChars:  cfg.ResultPreviewMaxChars,
		Logger:           logger,
	})

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startup.Run(baseCtx, m.Node.StartupHooks, logger); err != nil {
		logger.Error("startup hooks failed", zap.Error(err))
		os.Exit(1)
	}

	var consumer *msgbus.Consumer
	if cfg.NATSURL != "" {
		bus, busErr := msgbus.Connect(cfg.NATSURL, cfg.StreamName, logger)
		if busErr != nil {
			logger.Error("nats connect failed", zap.Error(busErr))
			os.Exit(1)
		}
		defer bus.Close()
		if err := bus.EnsureStream(); err != nil {
			logger.Error("ensure stream failed", zap.Error(err))
			os.Exit(1)
		}
		consumer = msgbus.NewConsumer(bus, dispatcher, coordinator, msgbus.ConsumerOptions{
			Subject:       cfg.ExecSubject,
			Group:         cfg.QueueGroup,
			ResultSubject: cfg.ResultSubject,
			Workers:       cfg.ConsumerWorkers,
			AckWait:       cfg.DefaultTimeout + cfg.DrainTimeout,
		}, logger)
		if err := consumer.Start(baseCtx); err != nil {
			logger.Error("consumer start failed", zap.Error(err))
			os.Exit(1)
		}
	}

	healthHandler := health.New(
		func() error {
			if !reg.Loaded() {
				return fmt.Errorf("manifest not loaded")
			}
			return nil
		},
		func() error {
			if !coordinator.Accepting() {
				return fmt.Errorf("draining")
			}
			return nil
		},
	)
	gateway := api.New(dispatcher, reg, coordinator, logger)

	application, err := app.New(baseCtx, fmt.Sprintf(":%d", cfg.Port), gateway, healthHandler, logger, cfg.ShutdownTimeout)
	if err != nil {
		logger.Error("http server init failed", zap.Error(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				reloadManifest(cfg, *embeddedManifest, reg, logger)
				continue
			}
			logger.Warn("shutdown requested", zap.String("signal", sig.String()))
			if consumer != nil {
				consumer.Stop()
			}
			coordinator.Shutdown(baseCtx)
			cancel()
			return
		}
	}()

	if err := application.Run(baseCtx); err != nil {
		logger.Error("runtime error", zap.Error(err))
		os.Exit(1)
	}
}

func loadManifest(cfg config.Config, embeddedName string) (*manifest.Manifest, error) {
	var rendered []byte
	var err error
	if embeddedName != "" {
		raw, loadErr := configs.Load(embeddedName)
		if loadErr != nil {
			return nil, fmt.Errorf("%w (available: %s)", loadErr, strings.Join(configs.Names(), ", "))
		}
		rendered, err = render.RenderBytes(embeddedName, raw)
	} else {
		rendered, err = render.RenderFile(cfg.ManifestPath)
	}
	if err != nil {
		return nil, err
	}
	return manifest.Load(rendered)
}

// reloadManifest rebuilds and swaps the registry snapshot. A broken
// manifest keeps the current snapshot live.
func reloadManifest(cfg config.Config, embeddedName string, reg *registry.Registry, logger *zap.Logger) {
	m, err := loadManifest(cfg, embeddedName)
	if err != nil {
		logger.Error("manifest reload failed, keeping current snapshot", zap.Error(err))
		return
	}
	snap, err := registry.Build(m, registry.BuildOptions{Categories: cfg.Categories, Logger: logger})
	if err != nil {
		logger.Error("manifest reload failed, keeping current snapshot", zap.Error(err))
		return
	}
	reg.Swap(snap)
}
