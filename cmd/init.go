package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/classifier"
	"github.com/sells-group/tariff-cli/internal/commodity"
	"github.com/sells-group/tariff-cli/internal/config"
	"github.com/sells-group/tariff-cli/internal/gateway"
	"github.com/sells-group/tariff-cli/internal/pipeline"
	"github.com/sells-group/tariff-cli/internal/reconcile"
	"github.com/sells-group/tariff-cli/internal/session"
	"github.com/sells-group/tariff-cli/pkg/anthropic"
	"github.com/sells-group/tariff-cli/pkg/perplexity"
)

// env bundles the wired pipeline and the resources that need closing.
type env struct {
	Pipeline *pipeline.Pipeline
	Store    *catalog.SQLiteStore
	Sessions session.Store
}

// Close releases the environment's resources.
func (e *env) Close() {
	if e.Sessions != nil {
		e.Sessions.Close()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initPipeline builds the full pipeline from configuration.
func initPipeline(ctx context.Context, cfg *config.Config) (*env, error) {
	store, err := catalog.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init: open catalog store")
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "init: migrate catalog store")
	}

	roster := classifier.DefaultRoster()
	if cfg.Classifier.RosterPath != "" {
		roster, err = classifier.LoadRoster(cfg.Classifier.RosterPath)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	gw := gateway.New(
		&gateway.AnthropicBackend{Client: anthropic.NewClient(cfg.Anthropic.Key)},
		&gateway.PerplexityBackend{Client: perplexity.NewClient(
			cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)},
		roster.Aliases(),
		cfg.Gateway.DefaultAlias,
		time.Duration(cfg.Gateway.TimeoutSecs)*time.Second,
	)

	stage1 := classifier.New(gw, roster, time.Duration(cfg.Classifier.CallDelayMS)*time.Millisecond)
	stage2 := reconcile.NewEngine(store, gw, reconcile.Config{
		MaxExactOptions:   cfg.Reconcile.MaxExactOptions,
		MaxHeadingOptions: cfg.Reconcile.MaxHeadingOptions,
		ArbiterModel:      cfg.Anthropic.HaikuModel,
	})
	stage3 := commodity.NewResolver(store, gw, cfg.Anthropic.HaikuModel)

	sessions := session.NewMemory(time.Duration(cfg.Session.TTLMinutes) * time.Minute)

	return &env{
		Pipeline: pipeline.New(stage1, stage2, stage3, sessions, store),
		Store:    store,
		Sessions: sessions,
	}, nil
}
