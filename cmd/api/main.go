// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/database/sqlite"
	"github.com/your-org/storefront/internal/infrastructure/kv"
	"github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/commerce"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/pdf"
	"github.com/your-org/storefront/internal/pkg/session"
	"github.com/your-org/storefront/internal/viewer"
	"golang.org/x/sync/errgroup"
)

const purgeInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting storefront")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	log.WithField("products", catalog.Len()).Info("Catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, redisClient, closers, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer func() { closeAll(closers, log) }()

	repo := cart.NewRepository(store, cfg.Storage.KeyPrefix, log)
	engine := pricing.NewEngine(cfg.Pricing.FreeShippingThreshold, cfg.Pricing.FlatShippingFee)

	// Optional commerce backend mirror
	var syncer *cart.Syncer
	if cfg.Commerce.Enabled() {
		client := commerce.NewClient(cfg.Commerce.BaseURL, cfg.Commerce.Timeout)
		closers = append(closers, closeFunc(client.Close))

		var resolver cart.VariantResolver = cart.NoVariant{}
		if cfg.Commerce.VariantResolver == config.VariantResolverRemote {
			resolver = cart.NewRemoteVariantResolver(client)
		}
		syncer = cart.NewSyncer(client, repo, resolver, cfg.Commerce.RegionID, cfg.Commerce.SyncTimeout, log)
		log.WithField("base_url", cfg.Commerce.BaseURL).Info("Commerce backend sync enabled")
	}

	fetcher, err := viewer.NewHTTPMetaFetcher(cfg.Viewer.AssetBaseURL, cfg.Viewer.MetaFetchTimeout)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure viewer")
	}
	closers = append(closers, closeFunc(fetcher.Close))

	hub := viewer.NewHub(viewer.HubOptions{
		MetaSuffix:       cfg.Viewer.MetaSuffix,
		CameraMultiplier: cfg.Viewer.CameraMultiplier,
		Fetcher:          fetcher,
		FetchTimeout:     cfg.Viewer.MetaFetchTimeout,
		MaxSessions:      cfg.Viewer.MaxSessions,
		IdleTimeout:      cfg.Viewer.IdleTimeout,
	}, log)

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.Storage.KeyPrefix)
	}

	deps := routes.Dependencies{
		Config:   cfg,
		Products: product.NewService(catalog, cfg.DisplayLocale(), log),
		Carts:    cart.NewService(catalog, repo, engine, syncer, log),
		Quotes:   pdf.NewService(cfg, catalog),
		Sessions: session.NewManager(cfg.Session, cfg.App.Name),
		Viewer:   hub,
		Log:      log,
	}

	server, err := http.NewServer(cfg, deps, store, limiter, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create HTTP server")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	})
	if cfg.Viewer.IdleTimeout > 0 {
		g.Go(func() error {
			evictIdleViewers(gctx, hub, cfg.Viewer.IdleTimeout, log)
			return nil
		})
	}
	if purger, ok := store.(kv.Purger); ok {
		g.Go(func() error {
			purgeExpired(gctx, purger, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}

	// Let in-flight backend pushes finish before closing clients
	if syncer != nil {
		syncer.Wait()
	}
	hub.CloseAll()

	log.Info("Server shutdown completed")
}

func loadCatalog(cfg *config.Config) (*product.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return product.LoadFile(cfg.Catalog.Path)
	}
	return product.Default()
}

// openStore connects the configured persistence backend. The Redis client is
// returned when the backend is Redis so rate limits can share it.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (kv.Store, *goredis.Client, []io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client, err := redis.NewConnection(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.Health(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis health check failed: %w", err)
		}
		return kv.NewRedisStore(client.GetClient(), cfg.Storage.TTL), client.GetClient(), []io.Closer{client}, nil

	case config.StoragePostgres:
		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Health(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("database health check failed: %w", err)
		}

		migration := postgres.NewMigration(db.GetDB(), log)
		if err := migration.RunAutoMigrations(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		if err := migration.CreateIndexes(); err != nil {
			log.WithError(err).Warn("Index creation failed")
		}
		return kv.NewGormStore(db.GetDB(), cfg.Storage.TTL), nil, []io.Closer{db}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := kv.NewSQLStore(ctx, db, cfg.Storage.TTL)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.WithField("path", cfg.SQLite.Path).Info("SQLite storage ready")
		return store, nil, []io.Closer{db}, nil

	default:
		log.Warn("Using in-memory storage, carts are lost on restart")
		return kv.NewMemoryStore(cfg.Storage.TTL), nil, nil, nil
	}
}

// purgeExpired sweeps expired rows from SQL-backed stores until ctx ends
// evictIdleViewers closes abandoned viewer sessions every half idle timeout
func evictIdleViewers(ctx context.Context, hub *viewer.Hub, idle time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := hub.EvictIdle(); n > 0 {
				log.WithField("closed", n).Info("Evicted idle viewer sessions")
			}
		}
	}
}

func purgeExpired(ctx context.Context, purger kv.Purger, log logrus.FieldLogger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.Purge(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired entries")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Info("Purged expired entries")
			}
		}
	}
}

type closeFunc func()

func (f closeFunc) Close() error {
	f()
	return nil
}

func closeAll(closers []io.Closer, log logrus.FieldLogger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.WithError(err).Warn("Failed to close resource")
		}
	}
}
