// Command arenawatch follows a scheduled battle and serves its live state.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/arenasync/internal/adapters/backend"
	"github.com/okian/arenasync/internal/adapters/clock"
	"github.com/okian/arenasync/internal/adapters/http/api"
	"github.com/okian/arenasync/internal/adapters/http/swagger"
	service "github.com/okian/arenasync/internal/app"
	"github.com/okian/arenasync/internal/config"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/playback"
	"github.com/okian/arenasync/pkg/logger"
	"github.com/okian/arenasync/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logs: " + err.Error() + "\n")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "arenawatch stopped", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	sess, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	srv := newServer(cfg, sess)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(gctx)
	})

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// newSession builds the backend client and the session from cfg.
func newSession(cfg *config.Config, log logger.Logger) (*service.Session, error) {
	client, err := backend.New(cfg.BackendURL,
		backend.WithToken(cfg.AuthToken),
		backend.WithTimeout(cfg.RequestTimeout()),
		backend.WithLogger(log.Named("backend")),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	lo, hi := cfg.BetBounds()
	opts := []service.Option{
		service.WithLogger(log),
		service.WithClock(clock.New(clock.WithInterval(cfg.TickInterval()))),
		service.WithFetchWorkers(cfg.FetchWorkers),
		service.WithResultQueueSize(cfg.ResultQueueSize),
		service.WithRequestTimeout(cfg.RequestTimeout()),
		service.WithOverlayGrace(cfg.OverlayGrace()),
		service.WithMinFetchGap(cfg.MinFetchGap()),
		service.WithBetBounds(lo, hi),
		service.WithPlaybackOptions(
			playback.WithBaseline(cfg.BaselineValue),
			playback.WithSteps(cfg.InterpSteps),
			playback.WithStepInterval(cfg.InterpStep()),
			playback.WithRoundInterval(cfg.RoundInterval()),
		),
	}
	if cfg.BattleID != "" {
		opts = append(opts, service.WithPinnedEvent(model.ID(cfg.BattleID)))
	}
	return service.New(client, opts...), nil
}

// newServer registers the status API on a fresh mux.
func newServer(cfg *config.Config, sess *service.Session) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(sess).Register(mux)
	swagger.Register(mux)

	// No WriteTimeout: /stream connections are long-lived.
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
