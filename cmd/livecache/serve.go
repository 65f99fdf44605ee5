package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	lc "github.com/huykn/livecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

var serveFlags queryFlags

var serveCmd = &cobra.Command{
	Use:   "serve <event> <list-key>",
	Short: "Serve a live list over HTTP",
	Long: `Hosts a live query like watch and serves it over HTTP:
  GET /snapshot  current list
  GET /stats     cache statistics
  GET /healthz   fetch status
  GET /metrics   Prometheus metrics`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("create prometheus exporter: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		defer provider.Shutdown(context.Background())

		cfg, logg, c, err := connect(provider.Meter("github.com/huykn/livecache"))
		if err != nil {
			return err
		}
		defer logg.Sync()
		defer c.Close()

		q, err := watchList(ctx, c, args[0], args[1], serveFlags)
		if err != nil {
			return err
		}
		defer q.Close()

		app := newServer(q, c, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		go func() {
			<-ctx.Done()
			_ = app.Shutdown()
		}()

		logg.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			return err
		}
		logg.Info("Server stopped", zap.Any("stats", c.Stats()))
		return nil
	},
}

func init() {
	serveFlags.register(serveCmd)
	RootCmd.AddCommand(serveCmd)
}

type statsSource interface {
	Stats() lc.Stats
	RetentionMetrics() lc.LocalCacheMetrics
}

func newServer(q *lc.LiveQuery[lc.Record], stats statsSource, metrics http.Handler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/snapshot", func(c *fiber.Ctx) error {
		return c.JSON(q.Snapshot())
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cache":     stats.Stats(),
			"retention": stats.RetentionMetrics(),
		})
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		status, err := q.State()
		body := fiber.Map{"status": status.String()}
		if err != nil {
			body["error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		if status != lc.StatusSuccess {
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		return c.JSON(body)
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics))
	return app
}
