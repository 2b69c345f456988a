package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "vigild",
		Usage:   "community message risk monitoring daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "upstream-host",
			Usage:   "hostname and port of message event stream to subscribe to (ws:// or wss://)",
			EnvVars: []string{"VIGIL_UPSTREAM_HOST"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for counters, profiles, and stream cursor",
			EnvVars: []string{"VIGIL_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string for profiles and alerts (postgres:// or sqlite://)",
			EnvVars: []string{"VIGIL_DATABASE_URL", "DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "lexicon-json",
			Usage:   "path to a JSON file with category trigger terms (defaults to built-in lexicon)",
			EnvVars: []string{"VIGIL_LEXICON_JSON"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "slack incoming webhook for alert notifications",
			EnvVars: []string{"VIGIL_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP API",
			Value:   ":3989",
			EnvVars: []string{"VIGIL_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":3988",
			EnvVars: []string{"VIGIL_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "worker-count",
			Usage:   "number of concurrent analysis workers (per-author ordering always preserved)",
			Value:   32,
			EnvVars: []string{"VIGIL_WORKER_COUNT"},
		},
		&cli.Float64Flag{
			Name:    "high-risk-threshold",
			Usage:   "per-message score at or above which an author's high-risk count is incremented",
			Value:   0.8,
			EnvVars: []string{"VIGIL_HIGH_RISK_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "decay",
			Usage:   "discount applied to accumulated risk before each new message",
			Value:   0.95,
			EnvVars: []string{"VIGIL_DECAY"},
		},
		&cli.Float64Flag{
			Name:    "alert-threshold-low",
			Value:   0.3,
			EnvVars: []string{"VIGIL_ALERT_THRESHOLD_LOW"},
		},
		&cli.Float64Flag{
			Name:    "alert-threshold-medium",
			Value:   0.6,
			EnvVars: []string{"VIGIL_ALERT_THRESHOLD_MEDIUM"},
		},
		&cli.Float64Flag{
			Name:    "alert-threshold-high",
			Value:   0.8,
			EnvVars: []string{"VIGIL_ALERT_THRESHOLD_HIGH"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter, configured via the standard
		// OTEL_EXPORTER_OTLP_* environment variables.
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			logger.Info("setting up trace exporter", "endpoint", ep)
			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				return fmt.Errorf("failed to create trace exporter: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown trace exporter", "err", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("vigild"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),
					attribute.String("environment", os.Getenv("ENVIRONMENT")),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			Logger:            logger,
			UpstreamHost:      cctx.String("upstream-host"),
			RedisURL:          cctx.String("redis-url"),
			DatabaseURL:       cctx.String("database-url"),
			LexiconJSONPath:   cctx.String("lexicon-json"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
			Bind:              cctx.String("bind"),
			WorkerCount:       cctx.Int("worker-count"),
			Decay:             cctx.Float64("decay"),
			HighRiskThreshold: cctx.Float64("high-risk-threshold"),
			AlertLow:          cctx.Float64("alert-threshold-low"),
			AlertMedium:       cctx.Float64("alert-threshold-medium"),
			AlertHigh:         cctx.Float64("alert-threshold-high"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				logger.Error("failed to start metrics endpoint", "err", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run monitoring service: %w", err)
		}
		return nil
	},
}
