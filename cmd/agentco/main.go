// Command agentco runs the company coordination core: the channel and task
// stores, the wake-up trigger engine, the stale-task watchdog, and the
// RPC/HTTP surface the agents and the dashboard talk to.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/landywei/agent-co/internal/bootstrap"
	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/config"
	"github.com/landywei/agent-co/internal/gateway"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/roster"
	"github.com/landywei/agent-co/internal/server"
	"github.com/landywei/agent-co/internal/store"
	"github.com/landywei/agent-co/internal/telemetry"
	"github.com/landywei/agent-co/internal/trigger"
	"github.com/landywei/agent-co/internal/watchdog"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("AGENTCO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("agentco starting", "version", version, "port", cfg.Port, "state_dir", cfg.StateDir)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	if err := os.MkdirAll(filepath.Join(cfg.StateDir, "company"), 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	// One bus per store.
	channelBus := bus.New(logger)
	taskBus := bus.New(logger)

	channels, err := store.NewChannelStore(cfg.ChannelDBPath(), channelBus, logger)
	if err != nil {
		return fmt.Errorf("channel store: %w", err)
	}
	defer func() { _ = channels.Close() }()

	tasks, err := store.NewTaskStore(cfg.TaskDBPath(), taskBus, logger)
	if err != nil {
		return fmt.Errorf("task store: %w", err)
	}
	defer func() { _ = tasks.Close() }()

	r, err := roster.Load(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}

	// The investor-relations channel exists from first startup.
	boot := bootstrap.New(cfg.StateDir, r, channels, logger)
	if err := boot.EnsureSeedChannels(ctx); err != nil {
		return err
	}

	callLog, err := gateway.OpenCallLog(cfg.LLMCallLogFile, logger)
	if err != nil {
		return fmt.Errorf("call log: %w", err)
	}
	defer func() { _ = callLog.Close() }()

	gw := gateway.New(cfg.GatewayURL, cfg.GatewayTimeout, callLog, logger)

	hub := server.NewHub(logger)

	// Trigger engine and watchdog get their own cancellation scope so the
	// shutdown sequence can stop them before draining the HTTP server.
	daemonCtx, daemonCancel := context.WithCancel(ctx)
	defer daemonCancel()

	engine := trigger.New(channels, r, gw, hub, trigger.Config{
		Cooldown:        cfg.TriggerCooldown,
		TranscriptDepth: cfg.TranscriptDepth,
		GatewayTimeout:  cfg.GatewayTimeout,
	}, logger)
	channelBus.Subscribe(engine.HandleEvent)
	engine.Start(daemonCtx)

	// Task events reach dashboards directly; channel events arrive through
	// the trigger engine's re-broadcast.
	taskBus.Subscribe(func(ev model.Event) {
		hub.Broadcast(string(ev.Kind()), ev)
	})

	wd := watchdog.New(tasks, taskBus, cfg.CheckInterval, cfg.StaleThreshold, logger)
	go wd.Run(daemonCtx)

	srv := server.New(server.Config{
		Channels:       channels,
		Tasks:          tasks,
		Roster:         r,
		Hub:            hub,
		Sessions:       engine,
		Logger:         logger,
		StateDir:       cfg.StateDir,
		StaleThreshold: cfg.StaleThreshold,
		CheckInterval:  cfg.CheckInterval,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		Version:        version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown. Stop the watchdog and trigger engine first so no
	// new gateway calls start, drain in-flight dispatches up to a grace
	// period, then close the HTTP surface, the hub, and finally the stores
	// (via the deferred Closes).
	slog.Info("agentco shutting down")
	daemonCancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	engine.Drain(drainCtx)
	drainCancel()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	hub.Close()

	slog.Info("agentco stopped")
	return nil
}
