// Command cinefeed runs the movie-catalog aggregation service: one crawl
// orchestrator per configured source, cron triggers, and the HTTP control
// surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cinefeed/cinefeed/internal/api"
	"github.com/cinefeed/cinefeed/internal/cache"
	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/crawl"
	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/merge"
	"github.com/cinefeed/cinefeed/internal/resolver"
	"github.com/cinefeed/cinefeed/internal/revalidate"
	"github.com/cinefeed/cinefeed/internal/scheduler"
	"github.com/cinefeed/cinefeed/internal/source"
	"github.com/cinefeed/cinefeed/internal/source/kkphim"
	"github.com/cinefeed/cinefeed/internal/source/nguonc"
	"github.com/cinefeed/cinefeed/internal/source/ophim"
	mongostore "github.com/cinefeed/cinefeed/internal/store/mongo"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cinefeed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			logger.Warn("mongo close failed", zap.Error(err))
		}
	}()

	var crawlCache cache.Cache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = redisCache.Close() }()
		crawlCache = redisCache
	} else {
		logger.Warn("redis disabled; crawl state will not survive restarts")
		crawlCache = cache.NewMemory()
	}

	res := resolver.New(store.Entities(), logger)
	engine := merge.New(store.Movies(), res, logger)
	batcher := revalidate.New(cfg.Revalidation.Endpoint, cfg.Revalidation.APIKey, logger)
	client := source.NewClient(cfg.HTTPTimeout(), cfg.Crawler.UserAgent)

	registry := crawl.NewRegistry()
	sched := scheduler.New(registry, logger)

	for _, src := range cfg.Sources {
		crawlCfg := loadSettings(ctx, store.Settings(), src.CrawlConfig(), logger)

		adapter, err := buildAdapter(crawlCfg, client)
		if err != nil {
			return err
		}
		o, err := crawl.New(crawlCfg, adapter, engine, crawlCache, store.Settings(), batcher, cfg.Enablement(), logger)
		if err != nil {
			return err
		}
		registry.Add(o)
		if err := sched.Register(crawlCfg.SourceName, crawlCfg.CronSchedule); err != nil {
			return err
		}
	}

	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(registry, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("cinefeed listening",
		zap.Int("port", cfg.Server.Port),
		zap.Strings("sources", registry.Names()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// loadSettings overlays persisted admin-edited settings, when present, over
// the file-level config for one source.
func loadSettings(ctx context.Context, settings catalog.SettingsStore, fileCfg crawl.Config, logger *zap.Logger) crawl.Config {
	persisted, err := settings.FindConfig(ctx, fileCfg.SourceName)
	switch {
	case err == nil:
		merged := crawl.ConfigFromSettings(*persisted)
		if merged.Validate() == nil {
			logger.Info("using persisted crawler settings",
				zap.String("source", fileCfg.SourceName))
			return merged
		}
		logger.Warn("persisted crawler settings invalid, using file config",
			zap.String("source", fileCfg.SourceName))
	case errors.Is(err, catalog.ErrNotFound):
	default:
		logger.Warn("crawler settings lookup failed, using file config",
			zap.String("source", fileCfg.SourceName), zap.Error(err))
	}
	return fileCfg
}

func buildAdapter(cfg crawl.Config, client *source.Client) (source.Adapter, error) {
	switch cfg.SourceName {
	case ophim.SourceName:
		return ophim.New(cfg.Host, cfg.ImageHost, client), nil
	case kkphim.SourceName:
		return kkphim.New(cfg.Host, cfg.ImageHost, client), nil
	case nguonc.SourceName:
		return nguonc.New(cfg.Host, cfg.ImageHost, client), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.SourceName)
	}
}
