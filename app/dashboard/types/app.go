package types

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/config"
	"github.com/canopy-network/hydrodash/pkg/display"
	"github.com/canopy-network/hydrodash/pkg/events"
	"github.com/canopy-network/hydrodash/pkg/loader"
	"github.com/canopy-network/hydrodash/pkg/redis"
	"github.com/canopy-network/hydrodash/pkg/session"
)

type App struct {
	Config config.Config

	Loader   *loader.Loader
	Sessions *session.Store
	// Hub fans session events out to websocket clients when Redis is disabled.
	Hub *events.Hub
	// RedisClient is nil when Redis is disabled.
	RedisClient *redis.Client
	Formatter   *display.Formatter

	// Cron triggers the scheduled refresh of URL-backed sessions and the idle session
	// sweep. Nil when neither is configured.
	Cron *cron.Cron
	// RefreshPool bounds concurrent refresh loads.
	RefreshPool pond.Pool

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application and blocks until ctx is done.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	if a.Cron != nil {
		a.Cron.Start()
		a.Logger.Info("Cron started",
			zap.String("refresh", a.Config.RefreshCron),
			zap.String("sessionSweep", a.Config.SessionSweepCron),
			zap.Int("jobs", len(a.Cron.Entries())))
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if a.RefreshPool != nil {
		a.RefreshPool.StopAndWait()
	}

	_ = a.Server.Shutdown(shutdownCtx)

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
