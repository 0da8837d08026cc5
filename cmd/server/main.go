package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/patrol/internal/config"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/mcp"
	"github.com/rpggio/patrol/internal/scan"
	"github.com/rpggio/patrol/internal/sqlite"
	"github.com/rpggio/patrol/internal/storage"
	"github.com/rpggio/patrol/internal/transport"
	"golang.org/x/sync/errgroup"
)

const defaultTenant = "default"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	bus, err := newBus(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	evidence, err := newEvidence(ctx, cfg.S3, logger)
	if err != nil {
		return err
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	checkpointRepo := sqlite.NewCheckpointRepository(db)
	roundRepo := sqlite.NewRoundRepository(db)
	visitRepo := sqlite.NewVisitRepository(db)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	clientSvc := client.NewService(sqlite.NewClientRepository(db), logger)
	checkpointSvc := checkpoint.NewService(checkpointRepo, bus, activitySvc, logger)
	templateSvc := template.NewService(sqlite.NewTemplateRepository(db), logger)
	scopes := round.NewScopeResolver(roundRepo, templateSvc)
	aggregator := progress.NewAggregator(scopes, checkpointRepo, visitRepo, bus, logger)
	roundSvc := round.NewService(roundRepo, templateSvc, aggregator, bus, activitySvc, round.Policy{
		RequireStartLocation:      cfg.Rounds.RequireStartLocation,
		RequireVehicleEndLocation: cfg.Rounds.RequireVehicleEndLocation,
	}, logger)
	visitSvc := visit.NewService(visitRepo, roundSvc, scopes, checkpointSvc, bus, activitySvc, cfg.Rounds.GeofenceRadiusMeters, logger)
	incidentSvc := incident.NewService(sqlite.NewIncidentRepository(db), roundSvc, bus, activitySvc, logger)

	services := mcp.Services{
		Clients:     clientSvc,
		Checkpoints: checkpointSvc,
		Templates:   templateSvc,
		Rounds:      roundSvc,
		Visits:      visitSvc,
		Progress:    aggregator,
		Incidents:   incidentSvc,
		Activity:    activitySvc,
		Decoder:     scan.NewQRDecoder(),
	}
	if evidence != nil {
		services.Evidence = evidence
	}

	hub := feed.NewHub(32)
	if err := aggregator.Run(ctx, bus); err != nil {
		return fmt.Errorf("start progress aggregator: %w", err)
	}
	if err := bus.StartForwarder(ctx, hub.Dispatch); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultTenant: defaultTenant,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		logger.Info("starting stdio transport", "auth", "disabled")
		// Run blocks until stdin closes or the context is canceled.
		if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	authMiddleware := transport.HeaderMiddleware(defaultTenant)
	if cfg.Auth.Enabled {
		authMiddleware = transport.AuthMiddleware(apiKeys)
	}
	router := transport.NewServer(mcp.NewHandler(services), authMiddleware, hub)
	router.Handle("/mcp/stream", sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled, "redis", cfg.Redis.Addr != "", "evidence", evidence != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newBus picks the Redis feed when configured so several instances share
// round events; otherwise events stay in-process.
func newBus(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (feed.Bus, error) {
	if cfg.Addr == "" {
		return feed.NewMemoryBus(), nil
	}
	bus, err := feed.NewRedisBus(ctx, feed.RedisOptions{
		Addr:          cfg.Addr,
		Password:      cfg.Password,
		DB:            cfg.DB,
		ChannelPrefix: cfg.ChannelPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return bus, nil
}

func newEvidence(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*storage.Evidence, error) {
	if cfg.Bucket == "" {
		logger.Info("evidence uploads disabled")
		return nil, nil
	}
	store, err := storage.NewS3Storage(ctx, storage.S3Options{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Bucket:          cfg.Bucket,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure evidence storage: %w", err)
	}
	return storage.NewEvidence(store, cfg.UploadExpiry), nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
