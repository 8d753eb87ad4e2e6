// Package main is the entry point for the hemogen farm colony server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/HemogenFarm/internal/colony"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/network"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/config"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
	"github.com/MRamiBalles/HemogenFarm/internal/settings"
)

var (
	configPath string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:          "hemofarm-server",
	Short:        "Authoritative colony server with automatic hemogen extraction",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "hemofarm.yaml", "Path to the YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
}

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	colonyID string
	repo     *storage.SQLiteEventRepository
	metrics  *metrics.Collector
}

func (a *SQLitePersisterAdapter) Append(event events.GameEvent) error {
	start := time.Now()
	err := a.append(event)
	a.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

func (a *SQLitePersisterAdapter) append(event events.GameEvent) error {
	var payload map[string]interface{}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}

	return a.repo.Append(context.Background(), storage.Event{
		ID:        event.ID,
		ColonyID:  a.colonyID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   payload,
		Tick:      event.Tick,
		GameDay:   event.GameDay,
	})
}

func serve(cfg *config.Config) error {
	appLogger, err := logger.New(logger.Options{Development: cfg.Log.Development, Level: cfg.Log.Level})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	colonyID := cfg.Engine.ColonyID
	m := metrics.Get()

	appLogger.Info("Initializing SQLite database", zap.String("path", cfg.Storage.Path))
	db, err := storage.InitSQLite(cfg.Storage.Path, cfg.Tuning.DBMaxOpenConns)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	farmRepo := storage.NewSQLiteFarmStateRepository(db)
	settingsRepo := storage.NewSQLiteSettingsRepository(db)

	store := settings.NewStore(settingsRepo, appLogger)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(&SQLitePersisterAdapter{colonyID: colonyID, repo: eventRepo, metrics: m}).
		WithLogger(appLogger.With(zap.String("component", "eventlog")))
	defer eventLog.Flush()

	appLogger.Info("Bootstrapping Engine Subsystems...")
	eng := engine.NewEngine(eventLog, store, appLogger, engine.Options{
		TickRate:      cfg.Engine.TickRate,
		BiotechActive: cfg.Engine.BiotechActive,
		Metrics:       m,
	})

	lastTick, err := eventRepo.LastTick(ctx, colonyID)
	if err != nil {
		return fmt.Errorf("restore clock: %w", err)
	}
	if lastTick > 0 {
		eng.OverrideTick(lastTick)
		appLogger.Info("Restored colony clock from database", zap.Int64("tick", lastTick))
	}

	svc := colony.NewService(colonyID, eng, store, farmRepo, eventLog, appLogger)
	if err := svc.Bootstrap(ctx, cfg.Engine.SeedColony); err != nil {
		return fmt.Errorf("bootstrap colony: %w", err)
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(svc, appLogger, m, network.HubOptions{
		BroadcastBuffer:  cfg.Tuning.BroadcastChannelBuffer,
		ClientSendBuffer: cfg.Tuning.ClientSendBuffer,
		ActionInterval:   cfg.Tuning.ActionInterval,
		PollInterval:     cfg.Tuning.EventPollInterval,
	})

	history := network.NewEventHistoryHandler(colonyID, eventLog, storage.NewReconstructor(eventRepo), appLogger)
	api := network.NewAPI(svc, history, hub, m, appLogger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("HTTP API & WS Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		eng.Start(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return svc.RunSnapshots(gctx, cfg.Tuning.SnapshotInterval)
	})
	hub.StartEventPoller(gctx, eventLog)

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
