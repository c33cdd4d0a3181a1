// Package app is the central wiring point for dependency injection.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/upb/retrieval-gateway/config"
	"github.com/upb/retrieval-gateway/middleware"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/repositories"
	"github.com/upb/retrieval-gateway/repositories/bolt"
	"github.com/upb/retrieval-gateway/repositories/postgres"
	"github.com/upb/retrieval-gateway/services/chunker"
	"github.com/upb/retrieval-gateway/services/embedding"
	"github.com/upb/retrieval-gateway/services/guardrails"
	"github.com/upb/retrieval-gateway/services/ingest"
	"github.com/upb/retrieval-gateway/services/pipeline"
	"github.com/upb/retrieval-gateway/services/vectorstore"
	"github.com/upb/retrieval-gateway/services/violations"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	AuditDB *sql.DB // nil when no violation sink is configured

	// Storage
	VectorRepo repositories.VectorRepository // nil for a memory-only store

	// Services
	Chunker    *chunker.Service
	Embedder   embedding.Embedder
	Store      *vectorstore.Service
	Ledger     *violations.Ledger
	Guardrails *guardrails.Service
	Ingest     *ingest.Service
	Pipeline   *pipeline.Service

	// Middleware
	IdentityMiddleware *middleware.IdentityMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := deps.initServices(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	deps.IdentityMiddleware = middleware.NewIdentityMiddleware(cfg.Server.JWTSecret, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initStorage opens the bbolt vector database and the optional audit sink
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.BoltPath != "" {
		if dir := filepath.Dir(cfg.Store.BoltPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		repo, err := bolt.NewVectorRepository(cfg.Store.BoltPath, d.Logger)
		if err != nil {
			return err
		}
		d.VectorRepo = repo
		d.Logger.Info("vector database opened", zap.String("path", cfg.Store.BoltPath))
	} else {
		d.Logger.Warn("no vector database path configured, store is memory-only")
	}

	if cfg.AuditDatabase != nil {
		db, err := postgres.NewConnection(cfg.AuditDatabase.DSN(), d.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		d.AuditDB = db
		d.Logger.Info("audit database connected",
			zap.String("connection", cfg.AuditDatabase.LogString()))
	}

	return nil
}

// initServices wires the retrieval and guardrails services
func (d *Dependencies) initServices(ctx context.Context, cfg *config.Config) error {
	ch, err := chunker.New(cfg.Store.ChunkSize, cfg.Store.ChunkOverlap)
	if err != nil {
		return err
	}
	d.Chunker = ch

	emb, err := newEmbedder(cfg.Embedding, d.Logger)
	if err != nil {
		return err
	}
	d.Embedder = emb
	d.Logger.Info("embedder initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", emb.ModelName()))

	store, err := vectorstore.New(vectorstore.Config{
		Dimension: cfg.Store.Dimension,
		MinScore:  cfg.Store.MinScore,
	}, d.VectorRepo, d.Logger)
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		return err
	}
	d.Store = store

	var sink repositories.ViolationRepository
	if d.AuditDB != nil {
		repo := postgres.NewViolationRepository(d.AuditDB, d.Logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = repo
	}
	d.Ledger = violations.NewLedger(violations.Config{
		TTL:           cfg.Guardrails.LedgerTTL,
		PurgeInterval: cfg.Guardrails.LedgerPurgeInterval,
	}, sink, d.Logger)
	if err := d.Ledger.Start(); err != nil {
		return err
	}

	d.Guardrails = guardrails.New(guardrails.Config{
		RateLimit: models.RateLimitConfig{
			MaxRequests: cfg.Guardrails.RateLimitMaxRequests,
			Window:      cfg.Guardrails.RateLimitWindow,
		},
		ExcerptMaxLen: cfg.Guardrails.ExcerptMaxLen,
	}, d.Ledger, d.Logger)

	d.Ingest = ingest.New(d.Chunker, d.Embedder, d.Store, d.Logger)
	d.Pipeline = pipeline.New(pipeline.Config{
		DefaultTopK:  cfg.Store.DefaultTopK,
		MaxTopK:      cfg.Store.MaxTopK,
		EmbedTimeout: cfg.Embedding.Timeout,
	}, d.Guardrails, d.Embedder, d.Store, d.Logger)

	return nil
}

// newEmbedder selects the embedding provider from configuration
func newEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimension), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimension:  cfg.Dimension,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Ledger != nil {
		if err := d.Ledger.Stop(10 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop violation ledger: %w", err))
		}
	}

	if d.VectorRepo != nil {
		if err := d.VectorRepo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vector database: %w", err))
		} else {
			d.Logger.Info("vector database closed")
		}
	}

	if d.AuditDB != nil {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		} else {
			d.Logger.Info("audit database closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
