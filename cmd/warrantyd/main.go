package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/warranty-tracker/internal/app"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/ingest"
	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
	"github.com/joseph-ayodele/warranty-tracker/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("config.load_failed", "err", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("warrantyd.exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := repository.HealthCheck(ctx, a.DB, 3*time.Second, logger); err != nil {
		a.Close(context.Background())
		return err
	}

	var watchUser uuid.UUID
	if cfg.Ingest.WatchDir != "" {
		if watchUser, err = uuid.Parse(cfg.Ingest.WatchUserID); err != nil {
			a.Close(context.Background())
			return err
		}
	}
	if err := a.StartConsumers(ctx, "warrantyd"); err != nil {
		a.Close(context.Background())
		return err
	}

	errc := make(chan error, 3)

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			a.Close(context.Background())
			return err
		}
		grpcServer, _ = server.NewGRPCServer(server.NewGRPCHandler(a.Service, logger), cfg.Redaction.Strict, logger)
		go func() {
			logger.Info("grpc.serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				errc <- err
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		healthy := func(c *gin.Context) error {
			return repository.HealthCheck(c.Request.Context(), a.DB, 2*time.Second, logger)
		}
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           server.NewRouter(a.Service, cfg.Redaction.Strict, healthy, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http.serving", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	if cfg.Ingest.WatchDir != "" {
		go func() {
			err := a.Ingest.Watch(ctx, watchUser, ingest.WatchConfig{
				Roots:       []string{cfg.Ingest.WatchDir},
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
				SkipHidden:  true,
			})
			if err != nil {
				errc <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("warrantyd.shutdown")
	case runErr = <-errc:
		logger.Error("warrantyd.component_failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http.shutdown_failed", "err", err)
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	a.Close(shutdownCtx)
	logger.Info("warrantyd.stopped")
	return runErr
}
