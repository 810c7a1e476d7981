package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/config"
	"github.com/kailas-cloud/jewelmatch/internal/db"
	dbRedis "github.com/kailas-cloud/jewelmatch/internal/db/redis"
	domsignal "github.com/kailas-cloud/jewelmatch/internal/domain/signal"
	logpkg "github.com/kailas-cloud/jewelmatch/internal/logger"
	"github.com/kailas-cloud/jewelmatch/internal/metrics"
	"github.com/kailas-cloud/jewelmatch/internal/repository/captioncache"
	"github.com/kailas-cloud/jewelmatch/internal/transport/catalog"
	llm "github.com/kailas-cloud/jewelmatch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/jewelmatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/jewelmatch/internal/usecase/match"
	signaluc "github.com/kailas-cloud/jewelmatch/internal/usecase/signal"
)

// app is the composition root shared by serve and match.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	match  *matchuc.Service
	health *healthuc.Service
	store  db.Store
	// cache is nil when the caption cache is disabled.
	cache *captioncache.CachedCaptioner
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Registered explicitly (no init())
	metrics.RegisterPipelineMetrics()

	models := llm.NewClient(&llm.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		CaptionModel:    cfg.LLM.CaptionModel,
		ExtractionModel: cfg.LLM.ExtractionModel,
		KeywordModel:    cfg.LLM.KeywordModel,
		Timeout:         time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		CaptionAttempts: cfg.LLM.CaptionAttempts,
		CaptionBackoff:  time.Duration(cfg.LLM.CaptionBackoffMS) * time.Millisecond,
		ImageTimeout:    time.Duration(cfg.LLM.ImageTimeoutSec) * time.Second,
		MaxImageBytes:   cfg.LLM.MaxImageBytes,
		DefaultMaterial: cfg.Match.DefaultMaterial,
		Logger:          logger,
	})

	searcher := catalog.NewClient(&catalog.Config{
		URL:        cfg.Catalog.URL,
		App:        cfg.Catalog.App,
		Key:        cfg.Catalog.Key,
		Secret:     cfg.Catalog.Secret,
		PageSize:   cfg.Catalog.PageSize,
		MaxResults: cfg.Catalog.MaxResults,
		Timeout:    cfg.CatalogTimeout(),
		PageDelay:  cfg.PageDelay(),
		Logger:     logger,
	})

	a := &app{cfg: cfg, logger: logger}

	// Pass nil interfaces (not typed nil pointers) when the cache is disabled.
	var captioner matchuc.Captioner = models
	var cachePinger healthuc.CachePinger
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to caption cache", zap.Strings("addrs", cfg.Cache.Addrs))

		a.store = store
		cachePinger = store
		a.cache = captioncache.New(
			models, store, cfg.LLM.CaptionModel,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.CaptionCacheTotal, logger,
		)
		captioner = a.cache
	}

	detector := domsignal.NewDetector(cfg.RuleSet())
	signals := signaluc.New(detector, models)

	a.match = matchuc.New(captioner, models, searcher, signals, detector, cfg.Match.DesiredLimit)
	a.health = healthuc.New(cachePinger, models)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
