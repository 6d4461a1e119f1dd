// Command tryon-web serves the try-on wizard steps as a JSON API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhpenta/tryon"
	"github.com/mhpenta/tryon/internal/config"
	"github.com/mhpenta/tryon/internal/httpclient"
	"github.com/mhpenta/tryon/provider/gemini"
)

func main() {
	if err := run(); err != nil {
		slog.Error("tryon-web exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := gemini.New(ctx, &gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		HTTPClient: httpclient.New(httpclient.Options{
			PreferIPv4: cfg.PreferIPv4,
			Timeout:    cfg.HTTPTimeout,
		}),
	})
	if err != nil {
		return err
	}

	opts := []tryon.ManagerOption{
		tryon.WithLogger(logger),
		tryon.WithRetryPolicy(cfg.RetryPolicy()),
	}
	if cfg.ImageModel != "" {
		opts = append(opts, tryon.WithImageModel(tryon.Model(cfg.ImageModel)))
	}
	if cfg.AnalysisModel != "" {
		opts = append(opts, tryon.WithAnalysisModel(tryon.Model(cfg.AnalysisModel)))
	}
	if cfg.OutputDir != "" {
		storage, err := tryon.NewDirStorage(cfg.OutputDir)
		if err != nil {
			return err
		}
		opts = append(opts, tryon.WithStorage(storage))
	}

	manager := tryon.NewManager(gen, opts...)
	defer manager.Close()

	sessions := tryon.NewSessionStore(cfg.SessionTTL)
	go sweepSessions(ctx, sessions, cfg.SessionTTL, logger)

	s := &server{
		manager:        manager,
		sessions:       sessions,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started",
		"addr", cfg.Addr,
		"image_model", string(manager.ImageModel()),
		"analysis_model", string(manager.AnalysisModel()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func sweepSessions(ctx context.Context, sessions *tryon.SessionStore, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(max(ttl/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Sweep(now); n > 0 {
				logger.Debug("expired sessions", "removed", n, "live", sessions.Len())
			}
		}
	}
}
