// File: cmd/server/providers.go
package main

import (
	"context"
	"log"
	"time"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/category"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/database"
	platformElasticsearch "launchpad_backend/internal/platform/elasticsearch"
	"launchpad_backend/internal/platform/logger"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/search"
	"launchpad_backend/internal/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDB opens the pool and applies pending migrations when DB_AUTO_MIGRATE is set.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	if cfg.DBAutoMigrate {
		if err := database.RunMigrations(cfg.DBSource, logger); err != nil {
			return nil, nil, err
		}
	}
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
	}, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRecorder(reg *prometheus.Registry) metrics.Recorder {
	return metrics.NewCollector(reg)
}

// provideSearchClient connects to Elasticsearch and makes sure the products
// index exists. A missing index is logged, not fatal; search falls back to the database.
func provideSearchClient(cfg *config.Config, logger *zap.Logger) (*platformElasticsearch.ESClientWrapper, error) {
	client, err := platformElasticsearch.NewClient(cfg, logger)
	if err != nil || client == nil {
		return client, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := platformElasticsearch.CreateProductsIndexIfNotExists(ctx, client, search.IndexName(cfg), logger); err != nil {
		logger.Error("Failed to create Elasticsearch products index", zap.Error(err))
	}
	return client, nil
}

func provideBlocklist() *auth.InMemoryBlocklistService {
	return auth.NewInMemoryBlocklistService(auth.DefaultBlocklistConfig())
}

func provideIndexRemover(indexer product.Indexer) user.ProductIndexRemover {
	return indexer
}

func provideProductCounter(repo product.Repository) category.ProductCounter {
	return repo
}
