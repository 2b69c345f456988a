package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogGorm "github.com/orandin/slog-gorm"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haven-community/vigil/alertstore"
	"github.com/haven-community/vigil/assessmentstore"
	"github.com/haven-community/vigil/classifier"
	"github.com/haven-community/vigil/countstore"
	"github.com/haven-community/vigil/engine"
	"github.com/haven-community/vigil/lexicon"
	"github.com/haven-community/vigil/notify"
	"github.com/haven-community/vigil/profile"
	"github.com/haven-community/vigil/profilestore"
	"github.com/haven-community/vigil/sentiment"
)

type Config struct {
	Logger            *slog.Logger
	UpstreamHost      string
	RedisURL          string
	DatabaseURL       string
	LexiconJSONPath   string
	SlackWebhookURL   string
	Bind              string
	WorkerCount       int
	Decay             float64
	HighRiskThreshold float64
	AlertLow          float64
	AlertMedium       float64
	AlertHigh         float64
}

type Server struct {
	logger       *slog.Logger
	engine       *engine.Engine
	sched        *engine.Scheduler
	echo         *echo.Echo
	upstreamHost string
	bind         string
	rdb          *redis.Client
	lastSeq      int64
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.UpstreamHost != "" && !strings.HasPrefix(config.UpstreamHost, "ws") {
		return nil, fmt.Errorf("specified upstream host must include 'ws://' or 'wss://'")
	}

	lex := lexicon.Default()
	if config.LexiconJSONPath != "" {
		var err error
		lex, err = lexicon.LoadFromFileJSON(config.LexiconJSONPath)
		if err != nil {
			return nil, fmt.Errorf("initializing lexicon: %w", err)
		}
		logger.Info("loaded lexicon from JSON", "path", config.LexiconJSONPath, "categories", len(lex.Categories()))
	}

	thresholds := profile.Thresholds{
		Low:    config.AlertLow,
		Medium: config.AlertMedium,
		High:   config.AlertHigh,
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	var counters countstore.CountStore
	var profiles profilestore.ProfileStore
	var alerts alertstore.AlertStore
	var history assessmentstore.AssessmentStore

	if config.RedisURL != "" {
		// generic client, for cursor state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %w", err)
		}
		counters = cnt
	} else {
		counters = countstore.NewMemCountStore()
	}

	switch {
	case config.DatabaseURL != "":
		db, err := setupDatabase(config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ps, err := profilestore.NewGormProfileStore(db)
		if err != nil {
			return nil, err
		}
		// profile reads on the hot path are served from a local cache;
		// safe because all updates flow through this process
		profiles = profilestore.NewCachedProfileStore(ps, 50_000, 30*time.Minute)
		alerts, err = alertstore.NewGormAlertStore(db)
		if err != nil {
			return nil, err
		}
		history, err = assessmentstore.NewGormAssessmentStore(db)
		if err != nil {
			return nil, err
		}
	case config.RedisURL != "":
		ps, err := profilestore.NewRedisProfileStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis profilestore: %w", err)
		}
		profiles = ps
		alerts = alertstore.NewMemAlertStore()
		history = assessmentstore.NewMemAssessmentStore()
	default:
		profiles = profilestore.NewMemProfileStore()
		alerts = alertstore.NewMemAlertStore()
		history = assessmentstore.NewMemAssessmentStore()
	}

	var notifier notify.Notifier = &notify.LogNotifier{Logger: logger}
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack alert notifications")
		notifier = notify.MultiNotifier{
			&notify.LogNotifier{Logger: logger},
			notify.NewSlackNotifier(config.SlackWebhookURL),
		}
	}

	eng := &engine.Engine{
		Logger:     logger,
		Classifier: classifier.New(lex, sentiment.NewTermScorer()),
		Profiles:   profiles,
		Alerts:     alerts,
		History:    history,
		Counters:   counters,
		Notifier:   notifier,
		AggConfig: profile.AggregatorConfig{
			Decay:             config.Decay,
			HighRiskThreshold: config.HighRiskThreshold,
		},
		Thresholds: thresholds,
	}

	workers := config.WorkerCount
	if workers <= 0 {
		workers = 32
	}
	sched := engine.NewScheduler(workers, logger, func(ctx context.Context, evt engine.MessageEvent) error {
		_, err := eng.ProcessMessage(ctx, evt)
		return err
	})

	s := &Server{
		logger:       logger,
		engine:       eng,
		sched:        sched,
		upstreamHost: config.UpstreamHost,
		bind:         config.Bind,
		rdb:          rdb,
	}
	s.echo = s.buildAPI()

	return s, nil
}

// setupDatabase opens a gorm handle from a URL-style connection string,
// accepting postgres:// (or postgresql://) and sqlite:// schemes.
func setupDatabase(dburl string) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch {
	case strings.HasPrefix(dburl, "sqlite://"):
		sqlitePath := dburl[len("sqlite://"):]
		if !strings.Contains(sqlitePath, ":?") {
			os.MkdirAll(filepath.Dir(sqlitePath), os.ModePerm)
		}
		dial = sqlite.Open(sqlitePath)
	case strings.HasPrefix(dburl, "postgresql://"), strings.HasPrefix(dburl, "postgres://"):
		// can pass entire URL, with prefix, to gorm driver
		dial = postgres.Open(dburl)
	default:
		return nil, fmt.Errorf("unsupported or unrecognized database URL scheme")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: slogGorm.New(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Run starts the consumer, HTTP API, and cursor persistence, and blocks
// until the context is cancelled or a shutdown signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	if s.upstreamHost != "" {
		eg.Go(func() error { return s.RunConsumer(ctx) })
		eg.Go(func() error { return s.RunPersistCursor(ctx) })
	} else {
		s.logger.Info("no upstream host configured; running API-only")
	}

	eg.Go(func() error {
		err := s.echo.Start(s.bind)
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP API startup: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	err := eg.Wait()

	// drain in-flight analysis before exiting
	s.sched.Shutdown()

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) buildAPI() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))

	e.GET("/health", s.handleHealth)
	e.POST("/api/v1/analyze", s.handleAnalyze)
	e.GET("/api/v1/profiles/:authorID", s.handleGetProfile)
	e.GET("/api/v1/profiles/:authorID/history", s.handleGetHistory)
	e.GET("/api/v1/alerts", s.handleListAlerts)
	e.PATCH("/api/v1/alerts/:id/status", s.handleUpdateAlertStatus)
	e.GET("/api/v1/stats", s.handleStats)
	return e
}

var cursorKey = "vigil/seq"

func (s *Server) ReadLastCursor(ctx context.Context) (int64, error) {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		s.logger.Info("redis not configured, skipping cursor read")
		return 0, nil
	}

	val, err := s.rdb.Get(ctx, cursorKey).Int64()
	if err == redis.Nil {
		s.logger.Info("no pre-existing cursor in redis")
		return 0, nil
	}
	s.logger.Info("found prior subscription cursor seq in redis", "seq", val)
	return val, err
}

func (s *Server) PersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	seq := atomic.LoadInt64(&s.lastSeq)
	if seq <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, cursorKey, seq, 14*24*time.Hour).Err()
}

// this method runs in a loop, persisting the current cursor state every 5 seconds
func (s *Server) RunPersistCursor(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if atomic.LoadInt64(&s.lastSeq) >= 1 {
				s.logger.Info("persisting final cursor seq value", "seq", atomic.LoadInt64(&s.lastSeq))
				if err := s.PersistCursor(context.Background()); err != nil {
					s.logger.Error("failed to persist cursor", "err", err)
				}
			}
			return nil
		case <-ticker.C:
			if atomic.LoadInt64(&s.lastSeq) >= 1 {
				if err := s.PersistCursor(ctx); err != nil {
					s.logger.Error("failed to persist cursor", "err", err)
				}
			}
		}
	}
}
