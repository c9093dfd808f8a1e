package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/tradepress/internal/capability"
	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directiveconfig"
	"github.com/wonny/tradepress/internal/directives"
	"github.com/wonny/tradepress/internal/scoring"
	"github.com/wonny/tradepress/internal/storage"
	"github.com/wonny/tradepress/pkg/cache"
	"github.com/wonny/tradepress/pkg/config"
	"github.com/wonny/tradepress/pkg/database"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
	"github.com/wonny/tradepress/pkg/redis"
)

// app is the composition root shared by every command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder
	registry *directives.Registry
	settings *directiveconfig.Config
	resolved *directiveconfig.Resolved
	scorer   *scoring.Scorer

	redis      *redis.Client
	memory     *cache.MemoryStore // set when Redis is disabled
	capability *capability.Service

	db   *database.DB        // nil without DATABASE_URL
	repo *storage.Repository // nil without DATABASE_URL
}

type appOptions struct {
	logOut   io.Writer
	database bool // open the database when configured
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(opts.logOut, level, cfg.LogFormat).WithField("env", cfg.Env)

	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 3. Directive registry + configuration
	a.registry = directives.NewDefaultRegistry()

	path := cfg.Scoring.ConfigPath
	if scoringConfig != "" {
		path = scoringConfig
	}
	a.settings, err = directiveconfig.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		a.settings.TradingMode = cfg.Scoring.DefaultTradingMode
	}

	a.resolved, err = a.settings.Resolve(a.registry)
	if err != nil {
		return nil, fmt.Errorf("resolve directive config: %w", err)
	}

	hash, err := directiveconfig.Hash(a.settings)
	if err != nil {
		return nil, fmt.Errorf("hash directive config: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"config_path":  path,
		"config_hash":  hash,
		"trading_mode": a.resolved.TradingMode,
		"enabled":      len(a.resolved.Enabled),
	}).Debug("Directive config loaded")

	// 4. Scorer
	a.scorer, err = scoring.NewScorer(a.registry, a.resolved.Scoring, log,
		scoring.WithDirectiveConfigs(a.resolved.Overrides, a.resolved.Fallback),
		scoring.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}

	// 5. Capability cache (Redis when enabled, in-process otherwise)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var store contracts.CacheStore
	if a.redis.Enabled() {
		store = redis.NewCache(a.redis)
	} else {
		a.memory = cache.NewMemoryStore()
		store = a.memory
	}
	a.capability = capability.NewService(store, cfg.Scoring.CapabilityCacheTTL, log,
		capability.WithMetrics(a.metrics))

	// 6. Database (optional)
	if opts.database && cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.repo = storage.NewRepository(a.db.Pool)
		if err := a.repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		log.Info("Connected to database")
	}

	return a, nil
}

// repository returns the ranking repository or nil; never a typed nil
func (a *app) repository() contracts.RankingRepository {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

// cacheStoreName names the capability cache backend
func (a *app) cacheStoreName() string {
	if a.memory != nil {
		return "memory"
	}
	return "redis"
}

func (a *app) Close() {
	a.db.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
