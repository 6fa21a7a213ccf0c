// Package main - entry point for the SkillSphere progression engine.
//
// The engine tracks learner profiles, skill tree enrollments, node
// completions, XP grants, and achievement unlocks, and exposes them
// through a REST API.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries/Sagas)
// - Infrastructure: repository implementations, messaging, caching
// - Interface: HTTP handlers
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillsphere/progression-engine/config"
	"github.com/skillsphere/progression-engine/internal/application/command"
	"github.com/skillsphere/progression-engine/internal/application/eventhandler"
	"github.com/skillsphere/progression-engine/internal/application/query"
	"github.com/skillsphere/progression-engine/internal/application/saga"
	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/internal/infrastructure/messaging"
	"github.com/skillsphere/progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/skillsphere/progression-engine/internal/infrastructure/persistence/redis"
	httpserver "github.com/skillsphere/progression-engine/internal/interface/http"
	"github.com/skillsphere/progression-engine/internal/interface/http/handlers"
	"github.com/skillsphere/progression-engine/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	appLog := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})

	slogger.Info("starting progression engine",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	slogger.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		slogger.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		status, err := migrator.Status(ctx)
		if err != nil {
			slogger.Warn("failed to get migration status", "error", err)
		} else {
			appliedCount := 0
			for _, m := range status {
				if m.IsApplied {
					appliedCount++
				}
			}
			slogger.Info("migrations completed", "applied", appliedCount, "total", len(status))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional read-side caching)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var profileCache profile.Cache
	var treeCache catalog.Cache

	if !cfg.Redis.Disabled {
		slogger.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			slogger.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			profileCache = redis.NewProfileCache(redisCache)
			treeCache = redis.NewTreeCache(redisCache)
			slogger.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("initializing repositories...")
	profileRepo := postgres.NewProfileRepository(dbConn)
	treeRepo := postgres.NewTreeRepository(dbConn)
	nodeRepo := postgres.NewNodeRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	userAchRepo := postgres.NewUserAchievementRepository(dbConn)
	uowFactory := postgres.NewUnitOfWorkFactory(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("initializing event bus...", "mode", cfg.Engine.EventBusMode)

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = slogger
	busConfig.AsyncMode = cfg.Engine.EventBusMode != "sync"
	busConfig.WorkerPoolSize = cfg.Engine.EventWorkers

	var eventBus shared.EventBus
	switch cfg.Engine.EventBusMode {
	case "redis":
		if redisCache == nil {
			return errors.New("event bus mode redis requires a working Redis connection")
		}
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(redisCache.Client()),
			ChannelName:    cfg.Engine.EventChannel,
			LocalBusConfig: busConfig,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		eventBus = redisBus
		defer func() {
			slogger.Info("closing event bus...")
			_ = redisBus.Close()
		}()
	default:
		memBus := messaging.NewInMemoryEventBus(busConfig)
		eventBus = memBus
		defer func() {
			slogger.Info("closing event bus...")
			_ = memBus.Close()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands, Queries, Sagas)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("initializing application layer...")

	achievementSaga := saga.NewAchievementUnlockSaga(
		profileRepo,
		enrollmentRepo,
		progressRepo,
		achievementRepo,
		userAchRepo,
		eventBus,
		appLog,
		saga.DefaultAchievementUnlockConfig(),
	)

	completeNodeSaga := saga.NewCompleteNodeSaga(
		uowFactory,
		nodeRepo,
		treeRepo,
		achievementSaga,
		eventBus,
		appLog,
		saga.CompleteNodeConfig{MaxTxAttempts: cfg.Engine.CompletionMaxRetries},
	)

	createProfileCmd := command.NewCreateProfileHandler(profileRepo, eventBus)
	awardXPCmd := command.NewAwardXPHandler(profileRepo, eventBus)
	enrollTreeCmd := command.NewEnrollTreeHandler(profileRepo, treeRepo, enrollmentRepo, eventBus)
	startNodeCmd := command.NewStartNodeHandler(nodeRepo, enrollmentRepo, progressRepo)
	unlockAchievementCmd := command.NewUnlockAchievementHandler(achievementRepo, userAchRepo, profileRepo, eventBus)

	getProfileQuery := query.NewGetProfileHandler(profileRepo, profileCache, cfg.Engine.ProfileCacheTTL)
	listTreesQuery := query.NewListTreesHandler(treeRepo, enrollmentRepo)
	getEnrollmentQuery := query.NewGetEnrollmentHandler(enrollmentRepo)
	getTreeDetailQuery := query.NewGetTreeDetailHandler(
		treeRepo, nodeRepo, treeCache, enrollmentRepo, progressRepo, cfg.Engine.TreeCacheTTL)
	getJourneyQuery := query.NewGetJourneyHandler(
		profileRepo, enrollmentRepo, progressRepo, achievementRepo, userAchRepo)
	getAchievementsQuery := query.NewGetAchievementsHandler(achievementRepo, userAchRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EVENT DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("registering event handlers...")

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		EventBus:              eventBus,
		EnableDeadLetterQueue: true,
		Logger:                slogger,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))
	dispatcher.Use(messaging.MetricsMiddleware(dispatcher.Metrics()))

	xpGained := eventhandler.NewOnXPGainedHandler(profileCache, appLog)
	levelUp := eventhandler.NewOnLevelUpHandler(achievementSaga, profileCache, appLog)
	achUnlocked := eventhandler.NewOnAchievementUnlockedHandler(profileCache, appLog)

	if err := dispatcher.Register(xpGained.EventType(), "on_xp_gained", xpGained.Handle); err != nil {
		return fmt.Errorf("failed to register xp handler: %w", err)
	}
	if err := dispatcher.Register(levelUp.EventType(), "on_level_up", levelUp.Handle); err != nil {
		return fmt.Errorf("failed to register level handler: %w", err)
	}
	if err := dispatcher.Register(achUnlocked.EventType(), "on_achievement_unlocked", achUnlocked.Handle); err != nil {
		return fmt.Errorf("failed to register achievement handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		slogger.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableMetrics = cfg.HTTP.EnableMetrics
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.APIKeys = cfg.HTTP.APIKeys

	httpDeps := httpserver.Dependencies{
		CreateProfileHandler:     createProfileCmd,
		AwardXPHandler:           awardXPCmd,
		EnrollTreeHandler:        enrollTreeCmd,
		StartNodeHandler:         startNodeCmd,
		UnlockAchievementHandler: unlockAchievementCmd,
		CompleteNodeSaga:         completeNodeSaga,
		AchievementUnlockSaga:    achievementSaga,
		GetProfileHandler:        getProfileQuery,
		ListTreesHandler:         listTreesQuery,
		GetTreeDetailHandler:     getTreeDetailQuery,
		GetEnrollmentHandler:     getEnrollmentQuery,
		GetJourneyHandler:        getJourneyQuery,
		GetAchievementsHandler:   getAchievementsQuery,
		Logger:                   appLog,
		HealthChecker:            healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. START SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		slogger.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("progression engine is running",
		"http_address", httpServer.Address(),
		"event_bus_mode", cfg.Engine.EventBusMode,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		slogger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slogger.Error("service error", "error", err)
		return err
	case <-ctx.Done():
		slogger.Info("context cancelled")
	}

	slogger.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	slogger.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slogger.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	// Dispatcher, event bus, cache, and database close via defers

	if shutdownErr != nil {
		slogger.Warn("shutdown completed with errors")
	} else {
		slogger.Info("shutdown completed successfully")
	}

	return nil
}

// setupSlog configures the process-wide structured logger used by the
// messaging layer.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
