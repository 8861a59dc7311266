package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/app/dashboard/types"
	"github.com/canopy-network/hydrodash/pkg/session"
	"github.com/canopy-network/hydrodash/pkg/utils"
)

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// SetupScheduler registers the refresh and session sweep jobs that are configured on a
// new cron. Start is left to App.Start. app.Cron stays nil when no job is configured.
func SetupScheduler(ctx context.Context, app *types.App) error {
	logger := cronLogger{sugar: app.Logger.Named("cron").Sugar()}

	// six-field expressions, seconds first
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	jobs := 0

	if app.Config.RefreshCron != "" {
		_, err := c.AddFunc(app.Config.RefreshCron, func() {
			// keep each run bounded
			rctx, cancel := context.WithTimeout(ctx, 2*app.Config.LoadTimeout+time.Second)
			defer cancel()
			Refresh(rctx, app)
		})
		if err != nil {
			return fmt.Errorf("refresh schedule %q: %w", app.Config.RefreshCron, err)
		}
		jobs++
	}

	if app.Config.SessionSweepCron != "" && app.Config.SessionIdleTimeout > 0 {
		_, err := c.AddFunc(app.Config.SessionSweepCron, func() {
			app.Sessions.Evict(app.Config.SessionIdleTimeout)
		})
		if err != nil {
			return fmt.Errorf("session sweep schedule %q: %w", app.Config.SessionSweepCron, err)
		}
		jobs++
	}

	if jobs > 0 {
		app.Cron = c
	}
	return nil
}

// RefreshResult counts the outcome of one refresh run.
type RefreshResult struct {
	Sources    int
	Reloaded   int
	Failed     int
	Superseded int
}

// fetched replays the outcome of a single fetch to every session sharing a source.
type fetched struct {
	text string
	err  error
}

func (f fetched) Fetch(context.Context, string) (string, error) {
	return f.text, f.err
}

// Refresh reloads every session whose dataset came from a URL. Each distinct URL is
// fetched once, at most RefreshWorkers at a time, and the result is loaded into all
// the sessions using it.
func Refresh(ctx context.Context, app *types.App) RefreshResult {
	targets := make(map[string][]*session.Session)
	app.Sessions.Range(func(s *session.Session) bool {
		if src := s.Source(); utils.IsRemote(src) {
			targets[src] = append(targets[src], s)
		}
		return true
	})
	if len(targets) == 0 {
		return RefreshResult{}
	}

	var reloaded, failed, superseded atomic.Int64
	group := app.RefreshPool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for source, sessions := range targets {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			text, err := app.Loader.Fetch(groupCtx, source)
			result := fetched{text: text, err: err}
			for _, s := range sessions {
				err := s.LoadFrom(groupCtx, source, result)
				switch {
				case err == nil:
					reloaded.Add(1)
				case errors.Is(err, session.ErrSuperseded):
					superseded.Add(1)
				default:
					failed.Add(1)
				}
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		app.Logger.Warn("Some refresh tasks failed", zap.Error(err))
	}

	res := RefreshResult{
		Sources:    len(targets),
		Reloaded:   int(reloaded.Load()),
		Failed:     int(failed.Load()),
		Superseded: int(superseded.Load()),
	}
	app.Logger.Info("Refresh finished",
		zap.Int("sources", res.Sources),
		zap.Int("reloaded", res.Reloaded),
		zap.Int("failed", res.Failed),
		zap.Int("superseded", res.Superseded))
	return res
}
