package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/config"
	"github.com/Aashay2112/chat-app/pkg/logger"
	"github.com/Aashay2112/chat-app/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run serves until a signal arrives or a background loop fails. The error is
// already logged.
func run() error {
	configName := flag.String("config", "config", "config file name (without .yaml) looked up in the working directory")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logger.New("info", "json")
	cfg, err := config.Load(boot, *configName)
	if err != nil {
		boot.Fatal("load config", zap.Error(err))
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, zap.String("service", cfg.Server.Name), zap.String("env", cfg.Server.Env))
	defer log.Sync()
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown, err := telemetry.Init(ctx, cfg.Server.Name, cfg.Telemetry.Endpoint, log)
	if err != nil {
		log.Error("failed to initialize telemetry", zap.Error(err))
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", zap.Error(err))
		}
	}()

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.String("store", cfg.Store.Backend), zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			log.Warn("close dependencies", zap.Error(err))
		}
	}()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)
	fatal := make(chan error, 2)
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(hubCtx); err != nil {
				// without the relay other instances stop reaching our users;
				// exit non-zero so the orchestrator restarts the process
				log.Error("kafka relay stopped, shutting down", zap.Error(err))
				fatal <- err
				stop()
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(a.server, routerOptions{service: cfg.Server.Name, frontendURL: cfg.Server.FrontendURL, maxBodyBytes: cfg.Server.MaxBodyBytes}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("chat server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", zap.Error(err))
			fatal <- err
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stopHub()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}
