// Package app assembles the handler and its dependencies from configuration.
package app

import (
	"fmt"

	"github.com/arnavshah/compliance-api-go/pkg/auth"
	"github.com/arnavshah/compliance-api-go/pkg/cache"
	"github.com/arnavshah/compliance-api-go/pkg/compliance"
	"github.com/arnavshah/compliance-api-go/pkg/config"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/arnavshah/compliance-api-go/pkg/fetcher"
	"github.com/arnavshah/compliance-api-go/pkg/handlers"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var openDB = database.Open

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// New opens storage, configures auth and builds the report pipeline. The
// returned func releases the connections.
func New(cfg *config.Config) (*handlers.Handler, func(), error) {
	if cfg.JWTSecret == "" || cfg.APIMasterSecret == "" {
		log.Warn().Msg("JWT_SECRET or API_MASTER_SECRET not set, tokens and API keys are not secure")
	}
	auth.Configure(cfg.JWTSecret, cfg.APIMasterSecret)

	db, err := openDB(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	targets := compliance.NewTargets(cfg.DefaultShiftTarget, nil)
	if cfg.TargetsFile != "" {
		targets, err = compliance.LoadTargetsFile(cfg.TargetsFile, cfg.DefaultShiftTarget)
		if err != nil {
			closeDB(db)
			return nil, nil, fmt.Errorf("load targets: %w", err)
		}
		log.Info().Str("file", cfg.TargetsFile).Int("overrides", len(targets.Overrides)).Msg("shift targets loaded")
	}

	opts := []fetcher.Option{
		fetcher.WithToken(cfg.ReportAPIToken),
		fetcher.WithTimeout(cfg.FetchTimeout),
	}

	h := &handlers.Handler{
		DB:           db,
		Targets:      targets,
		MaxRangeDays: cfg.MaxRangeDays,
	}

	closers := []func(){}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			// Reports still load without the cache
			log.Warn().Err(err).Msg("redis unavailable, report cache disabled")
		} else {
			rc := cache.NewReportCache(rdb)
			opts = append(opts, fetcher.WithCache(rc, cfg.ReportCacheTTL))
			h.Cache = rc
			closers = append(closers, func() { _ = rdb.Close() })
			log.Info().Msg("redis report cache enabled")
		}
	}

	h.Loader = fetcher.NewLoader(fetcher.NewClient(cfg.ReportAPIURL, opts...))

	cleanup := func() {
		for _, c := range closers {
			c()
		}
		closeDB(db)
	}
	return h, cleanup, nil
}
