package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paralleldex/internal/auth"
	"paralleldex/internal/config"
	"paralleldex/internal/httpapi"
	"paralleldex/internal/kv"
	"paralleldex/internal/media"
	"paralleldex/internal/network"
	"paralleldex/internal/service"
	"paralleldex/internal/store"
	"paralleldex/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:], "paralleldex.env", ".env")
	if err != nil {
		logger.For("main").WithError(err).Fatal("load config failed")
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		logger.For("main").WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log := logger.For("main")
	if cfg.EphemeralSecret {
		log.Warn("PDEX_JWT_SECRET is empty, using a random secret; tokens will not survive a restart")
	}

	st, err := store.NewByEngine(cfg.StoreEngine, cfg.DataFile, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("store close failed")
		}
	}()

	ctx := context.Background()
	var values kv.Store
	switch cfg.KVEngine {
	case config.KVRedis:
		rdb, err := kv.DialRedis(ctx, cfg.RedisURL, logger.For("kv"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		values = rdb
	case config.KVMemory:
		values = kv.NewMemory()
	default:
		values = kv.FromStore(st)
	}

	uploader, err := media.NewUploader(cfg.COS)
	if err != nil {
		return fmt.Errorf("init snapshot uploader: %w", err)
	}
	if !uploader.Enabled() {
		log.Info("COS is not configured, snapshot upload disabled")
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	hub := network.NewHub()
	svc := service.New(service.Options{
		Store:        st,
		KV:           values,
		ScanDuration: cfg.ScanDuration,
		Uploader:     uploader,
		Notifier:     hub,
		Debug:        cfg.Debug,
	})
	defer svc.Close()

	limiter := httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger.For("ratelimit"))
	defer limiter.Stop()
	router := httpapi.NewRouter(httpapi.NewHandler(svc, issuer, hub), httpapi.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("paralleldex backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	case serveErr = <-errCh:
		log.WithError(serveErr).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	return serveErr
}
