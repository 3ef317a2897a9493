package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"quotepanel/internal/archive"
	"quotepanel/internal/cache"
	"quotepanel/internal/client/jquants"
	"quotepanel/internal/config"
	cronrunner "quotepanel/internal/cron"
	"quotepanel/internal/db"
	"quotepanel/internal/handler"
	"quotepanel/internal/logger"
	"quotepanel/internal/metrics"
	gormrepository "quotepanel/internal/repository/gorm"
	"quotepanel/internal/retry"
	"quotepanel/internal/service"
	"quotepanel/internal/universe"

	_ "quotepanel/docs"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := os.Getenv("PANEL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PANEL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokenCache, cacheKind := cache.New(ctx, cfg.Cache.RedisURL)
	logger.Info("token cache ready", zap.String("backend", cacheKind))

	if strings.TrimSpace(cfg.JQuants.RefreshToken) == "" {
		logger.Warn("jquants refresh token is not configured; syncs will fail with an auth error")
	}
	httpClient := &http.Client{Timeout: cfg.JQuants.Timeout}
	tokens := jquants.NewTokenProvider(cfg.JQuants.BaseURL, cfg.JQuants.RefreshToken, httpClient, tokenCache, logger)
	tokens.FallbackTTL = cfg.JQuants.TokenTTL
	tokens.Policy = retry.Policy{
		Attempts: cfg.JQuants.AuthAttempts,
		Timeout:  cfg.JQuants.AuthTimeout,
		Backoff:  retry.Linear(cfg.JQuants.AuthBackoff),
	}
	quotes := jquants.NewClient(jquants.Options{
		BaseURL:        cfg.JQuants.BaseURL,
		HTTPClient:     httpClient,
		Tokens:         tokens,
		RequestTimeout: cfg.JQuants.RequestTimeout,
		DayMaxPages:    cfg.Sync.DayMaxPages,
		CodeMaxPages:   cfg.Sync.CodeMaxPages,
	})

	store := gormrepository.New(dbConn.Gorm).WithChunkSize(cfg.Sync.ChunkSize)

	loc, err := time.LoadLocation(cfg.DB.Timezone)
	if err != nil {
		logger.Warn("unknown timezone; using UTC for the sync calendar", zap.String("timezone", cfg.DB.Timezone), zap.Error(err))
		loc = time.UTC
	}
	syncService := &service.PanelSyncService{
		Store:        store,
		Quotes:       quotes,
		Archive:      archive.New(cfg.Sync.ArchiveDir),
		Logger:       logger,
		Concurrency:  cfg.Sync.Concurrency,
		MaxRangeDays: cfg.Sync.MaxRangeDays,
		Location:     loc,
	}

	companies := universe.NewSource(cfg.Universe.CompanyCSV, logger)
	if _, err := companies.Directory(ctx); err != nil {
		logger.Warn("company directory not loaded (names and cap filter unavailable until reload)", zap.Error(err))
	}

	defaultSet, err := metrics.ParseFactorSet(cfg.Scoring.FactorSet)
	if err != nil {
		logger.Fatal("invalid scoring.factor_set", zap.Error(err))
	}
	rankingService := &service.RankingService{
		Store:    store,
		Sync:     syncService,
		Universe: companies,
		Logger:   logger,
		Params: map[metrics.FactorSet]metrics.Params{
			metrics.Medium:   factorParams(cfg.Scoring.Medium),
			metrics.Intraday: factorParams(cfg.Scoring.Intraday),
		},
		DefaultWeights: cfg.Scoring.Weights,
		DefaultLimit:   cfg.Scoring.Limit,
		MaxLimit:       cfg.Scoring.MaxLimit,
		DefaultSet:     defaultSet,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORS())
	engine.Use(handler.RequireBearer(cfg.Server.APIToken))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Universe: companies}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)
	panelHandler := &handler.PanelHandler{
		Sync:     syncService,
		Ranking:  rankingService,
		Store:    store,
		Universe: companies,
		Logger:   logger,
	}
	panelHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		id, err := cronRunner.Add(cfg.Cron.DailySync, cronrunner.DailySync(syncService, cfg.Sync.LookbackDays, logger))
		if err != nil {
			logger.Warn("cron register daily sync failed", zap.String("spec", cfg.Cron.DailySync), zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
		if err == nil {
			logger.Info("daily sync scheduled", zap.String("spec", cfg.Cron.DailySync), zap.Time("next", cronRunner.Next(id)))
		}
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func factorParams(c config.FactorParamsConfig) metrics.Params {
	return metrics.Params{
		NRet:      c.NRet,
		NMom:      c.NMom,
		NVolShort: c.NVolShort,
		NVolLong:  c.NVolLong,
		NVola:     c.NVola,
		MinFloor:  c.MinFloor,
	}
}
