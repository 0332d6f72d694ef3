package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/cache"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/database"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/health"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/kafka"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/middleware"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/provider"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/routes/reconciliation"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/startup"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing := tracing.Setup(cfg.AppName, logger)
			defer func() { _ = shutdownTracing(context.Background()) }()

			checker := health.NewChecker(cfg.Version)

			var (
				db       database.DB
				store    cache.Cache
				client   *provider.Client
				producer *kafka.Producer
				server   *http.Server
			)

			boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
			boot.AddDependency(startup.Func{
				Name: "database",
				StartFunc: func(ctx context.Context) error {
					conn, err := connectDatabase(ctx, cfg, logger)
					if err != nil {
						return err
					}
					if err := runMigrations(cfg, conn, logger); err != nil {
						_ = conn.Close()
						return err
					}
					db = conn
					checker.AddCheck("database", health.PingFunc(conn.PingContext))
					return nil
				},
				StopFunc: func(context.Context) error {
					return db.Close()
				},
			})
			boot.AddDependency(startup.Func{
				Name: "cache",
				StartFunc: func(ctx context.Context) error {
					c, err := newCache(ctx, cfg, logger)
					if err != nil {
						return err
					}
					store = c
					checker.AddOptionalCheck(c.Name(), c)
					return nil
				},
				StopFunc: func(context.Context) error {
					if redisCache, ok := store.(*cache.RedisCache); ok {
						return redisCache.Close()
					}
					return nil
				},
			})
			boot.AddDependency(startup.Func{
				Name:     "provider",
				Requires: []string{"cache"},
				StartFunc: func(context.Context) error {
					c, err := newProviderClient(cfg, store, logger)
					if err != nil {
						return err
					}
					client = c
					return nil
				},
			})
			boot.AddDependency(startup.Func{
				Name: "kafka",
				StartFunc: func(context.Context) error {
					producer = newProducer(cfg, logger)
					return nil
				},
				StopFunc: func(context.Context) error {
					if producer == nil {
						return nil
					}
					return producer.Close()
				},
			})
			boot.AddDependency(startup.Func{
				Name:     "server",
				Requires: []string{"database", "provider", "kafka"},
				StartFunc: func(context.Context) error {
					opts, err := defaultOptions(cfg)
					if err != nil {
						return err
					}
					svc := newService(db, client, producer, opts, logger)

					e := echo.New()
					e.HideBanner = true
					e.HidePort = true
					e.HTTPErrorHandler = middleware.Error(logger)
					e.Use(echomw.Recover())
					e.Use(otelecho.Middleware(cfg.AppName))
					e.Use(middleware.Context())
					e.Use(middleware.Logger(logger))
					e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
						AllowOrigins: cfg.AllowOrigins,
						AllowMethods: []string{http.MethodGet, http.MethodPost},
					}))

					checker.RegisterRoutes(e)
					e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
					reconciliation.Register(e.Group("/api/v1/reconciliations"), svc)

					server = &http.Server{
						Addr:              fmt.Sprintf(":%d", cfg.Port),
						Handler:           e,
						ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
						ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
						WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
						IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
						MaxHeaderBytes:    cfg.MaxHeaderBytes,
					}
					return nil
				},
				StopFunc: func(ctx context.Context) error {
					return server.Shutdown(ctx)
				},
			})

			if err := boot.Start(ctx); err != nil {
				return err
			}

			errChan := make(chan error, 1)
			go func() {
				logger.Infof("Listening on %s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
				close(errChan)
			}()
			checker.SetReady(true)

			var serveErr error
			select {
			case <-ctx.Done():
				logger.Info("Shutting down")
			case serveErr = <-errChan:
			}
			checker.SetReady(false)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := boot.Stop(shutdownCtx); err != nil && serveErr == nil {
				serveErr = err
			}
			return serveErr
		},
	}
}
