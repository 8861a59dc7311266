package dashboard

import (
	"context"
	"net/http"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/app/dashboard/types"
	"github.com/canopy-network/hydrodash/pkg/config"
	"github.com/canopy-network/hydrodash/pkg/display"
	"github.com/canopy-network/hydrodash/pkg/events"
	"github.com/canopy-network/hydrodash/pkg/loader"
	"github.com/canopy-network/hydrodash/pkg/logging"
	"github.com/canopy-network/hydrodash/pkg/redis"
	"github.com/canopy-network/hydrodash/pkg/retry"
	"github.com/canopy-network/hydrodash/pkg/session"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("dashboard")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.LoadRetries

	ldr := loader.New(loader.Config{
		Timeout:  cfg.LoadTimeout,
		MaxBytes: cfg.MaxBodyBytes,
		Root:     cfg.FileRoot,
		Retry:    retryCfg,
	}, &http.Client{}, logger)

	// Redis is optional: without it events stay in process.
	hub := events.NewHub(logger)
	var (
		redisClient *redis.Client
		notifier    session.Notifier = hub
	)
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - falling back to in-process events",
				zap.Error(err))
			redisClient = nil
		} else {
			notifier = events.NewRedisNotifier(redisClient, logger)
			logger.Info("Redis client initialized for session events")
		}
	} else {
		logger.Info("Redis disabled - session events are delivered in process")
	}

	app := &types.App{
		Config:      cfg,
		Loader:      ldr,
		Sessions:    session.NewStore(ldr, logger, notifier),
		Hub:         hub,
		RedisClient: redisClient,
		Formatter:   display.Default(),
		RefreshPool: pond.NewPool(cfg.RefreshWorkers),
		Logger:      logger,
	}

	if cfg.DataSource != "" {
		if err := app.Sessions.Default().Load(ctx, cfg.DataSource); err != nil {
			logger.Warn("Unable to load initial dataset", zap.String("source", cfg.DataSource), zap.Error(err))
		} else {
			logger.Info(app.Formatter.LoadedBanner(app.Sessions.Default().Status().Records))
		}
	}

	if err := SetupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}

	return app
}
