// Package app wires the upscaler service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/image-upscaler/backend/internal/api"
	"github.com/image-upscaler/backend/internal/config"
	"github.com/image-upscaler/backend/internal/history"
	"github.com/image-upscaler/backend/internal/jobs"
	"github.com/image-upscaler/backend/internal/storage"
	"github.com/image-upscaler/backend/internal/upscale"
	"github.com/image-upscaler/backend/internal/web"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version    string
	BuildTime  string
	ConfigPath string
}

type App struct {
	log  *slog.Logger
	cfg  *config.AppConfig
	info BuildInfo
	out  io.Writer
}

func New(log *slog.Logger, cfg *config.AppConfig, info BuildInfo, out io.Writer) *App {
	return &App{
		log:  log,
		cfg:  cfg,
		info: info,
		out:  out,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.EnsureDirectories(); err != nil {
		return err
	}

	store, err := storage.NewLocalStore(a.cfg.GetWorkspaceDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	resampler, err := upscale.NewResampler(a.cfg.Processing.ScaleFactor, a.cfg.Processing.Kernel, a.cfg.Processing.MaxOutputPixels)
	if err != nil {
		return fmt.Errorf("failed to initialize upscaler: %w", err)
	}

	// Keep the interfaces nil when history is disabled.
	var (
		jobHistory jobs.History
		reader     api.HistoryReader
	)
	if path := a.cfg.Storage.HistoryDatabase; path != "" {
		a.log.InfoContext(ctx, "opening job history", slog.String("path", path))

		h, err := history.Open(ctx, a.log, path)
		if err != nil {
			return fmt.Errorf("failed to open job history: %w", err)
		}
		defer h.Close()

		jobHistory, reader = h, h
	}

	jobMgr := jobs.NewManager(a.log, a.cfg.Processing.MaxConcurrentJobs, jobHistory)

	e := a.newEcho(&api.Dependencies{
		Log:               a.log,
		Store:             store,
		Jobs:              jobMgr,
		History:           reader,
		Upscaler:          resampler,
		AllowedExtensions: a.cfg.AllowedExtensions(),
		Version:           a.info.Version,
	})

	server := &http.Server{
		Addr:         a.cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.Server.IdleTimeout) * time.Second,
	}

	a.printBanner()

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server", slog.String("addr", server.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	erg.Go(func() error {
		a.runCleanup(ctx, jobMgr, store)
		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("server stopped with error", slog.String("err", err.Error()))
		return err
	}

	a.log.Info("server stopped gracefully")
	return nil
}

func (a *App) newEcho(deps *api.Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, a.log, api.MiddlewareConfig{
		BodyLimit:      a.cfg.Storage.MaxUploadSize,
		RequestLogging: a.cfg.Advanced.EnableRequestLogging,
		EnableCORS:     a.cfg.Server.EnableCORS,
		AllowOrigins:   a.cfg.Origins(),
		Debug:          a.cfg.Advanced.LogLevel == "debug",
	})
	api.RegisterRoutes(e, api.NewHandlers(deps))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			a.log.Warn("failed to register static routes", slog.String("err", err.Error()))
		}
	}

	return e
}

// sweeper is the part of the storage layer the cleanup loop needs.
type sweeper interface {
	CleanupOlderThan(maxAge time.Duration) (int, error)
}

// runCleanup expires finished jobs and orphaned workspaces until ctx is done.
func (a *App) runCleanup(ctx context.Context, jobMgr *jobs.Manager, store sweeper) {
	interval := time.Duration(a.cfg.Processing.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(jobMgr, store)
		}
	}
}

func (a *App) sweep(jobMgr *jobs.Manager, store sweeper) {
	retention := time.Duration(a.cfg.Processing.JobRetentionMinutes) * time.Minute

	if n := jobMgr.CleanupOldJobs(retention); n > 0 {
		a.log.Debug("expired jobs", slog.Int("count", n))
	}

	n, err := store.CleanupOlderThan(retention)
	if err != nil {
		a.log.Warn("workspace cleanup failed", slog.String("err", err.Error()))
		return
	}
	if n > 0 {
		a.log.Debug("removed stale workspaces", slog.Int("count", n))
	}
}

func (a *App) printBanner() {
	mode := "API only"
	if web.HasEmbeddedFiles() {
		mode = "Embedded web page"
	}

	fmt.Fprintf(a.out, "\n")
	fmt.Fprintf(a.out, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(a.out, "║           Image Upscaler Server                           ║\n")
	fmt.Fprintf(a.out, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(a.out, "║  Version:    %-45s║\n", a.info.Version)
	fmt.Fprintf(a.out, "║  Build Time: %-45s║\n", a.info.BuildTime)
	fmt.Fprintf(a.out, "║  Mode:       %-45s║\n", mode)
	fmt.Fprintf(a.out, "║  Scale:      x%-44d║\n", a.cfg.Processing.ScaleFactor)
	fmt.Fprintf(a.out, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(a.out, "║  Config:    %-46s║\n", a.info.ConfigPath)
	fmt.Fprintf(a.out, "║  Listen:    http://%-38s║\n", a.cfg.GetServerAddr())
	fmt.Fprintf(a.out, "║  Work Dir:  %-46s║\n", a.cfg.GetWorkspaceDir())
	fmt.Fprintf(a.out, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(a.out, "\n")
}
