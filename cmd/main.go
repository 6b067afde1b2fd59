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
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Dosada05/league-system/config"
	"github.com/Dosada05/league-system/db"
	"github.com/Dosada05/league-system/handlers"
	"github.com/Dosada05/league-system/health"
	"github.com/Dosada05/league-system/live"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/resilience"
	api "github.com/Dosada05/league-system/routes"
	"github.com/Dosada05/league-system/scheduling"
	"github.com/Dosada05/league-system/services"
	"github.com/Dosada05/league-system/storage"
)

const seasonSchedulerInterval = 30 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Redis делит состояние брейкеров и окна лимитера между инстансами.
	// Без него защитный слой работает на памяти процесса.
	var redisClient *redis.Client
	registryCfg := resilience.RegistryConfig{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(rootCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, resilience state degrades to local fallback", slog.Any("error", err))
		}
		fallback := resilience.NewLocalLimiterStore()
		go fallback.StartJanitor(rootCtx)

		registryCfg.BreakerStore = resilience.NewRedisBreakerStore(redisClient)
		registryCfg.WindowStore = resilience.NewRedisWindowStore(redisClient)
		registryCfg.LocalFallback = fallback
		logger.Info("resilience state shared via redis")
	} else {
		logger.Warn("REDIS_URL not set, resilience state is process-local")
	}
	registry := resilience.NewRegistry(registryCfg)

	// Cloudflare R2 — архив календарей. Опционален.
	var fixtureSheet *storage.FixtureSheet
	if cfg.R2Configured() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		fixtureSheet = storage.NewFixtureSheet(uploader)
		logger.Info("fixture sheet archive enabled")
	} else {
		logger.Warn("R2 is not configured, fixture sheet archive disabled")
	}

	// WebSocket-хаб комнат сезонов
	wsHub := live.NewHub(logger)
	go wsHub.Run()

	// Репозитории
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)

	// Сервисы
	schedulingDefaults := scheduling.Constraints{
		Courts:               cfg.Courts,
		MatchdayIntervalDays: cfg.MatchdayIntervalDays,
	}

	fixtureService := services.NewFixtureService(dbConn, seasonRepo, leagueRepo, teamRepo, matchRepo, standingRepo, logger)
	scheduleService := services.NewScheduleService(dbConn, seasonRepo, matchRepo, nil, schedulingDefaults, cfg.RescheduleDeadline, logger)
	standingsService := services.NewStandingsService(dbConn, leagueRepo, seasonRepo, matchRepo, standingRepo, wsHub, logger)
	seasonService := services.NewSeasonService(seasonRepo, leagueRepo, teamRepo, matchRepo, fixtureService, scheduleService, fixtureSheet, logger)
	logger.Info("services initialized")

	// Health-мониторинг
	validator := health.NewIntegrityValidator(0)
	monitor := health.NewMonitor(dbConn, redisClient, leagueRepo, seasonRepo, teamRepo, matchRepo, standingRepo, registry, validator, health.MonitorConfig{}, logger)

	// Планировщик статусов сезонов по датам
	go func() {
		ticker := time.NewTicker(seasonSchedulerInterval)
		defer ticker.Stop()

		if err := seasonService.AutoUpdateSeasonStatusesByDates(rootCtx); err != nil {
			logger.Error("season status scheduler: initial run failed", slog.Any("error", err))
		}
		for {
			select {
			case <-ticker.C:
				if err := seasonService.AutoUpdateSeasonStatusesByDates(rootCtx); err != nil {
					logger.Error("season status scheduler: run failed", slog.Any("error", err))
				}
			case <-rootCtx.Done():
				return
			}
		}
	}()

	// Фоновое обновление health-отчёта: кэш всегда тёплый.
	go func() {
		ticker := time.NewTicker(cfg.HealthRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				report := monitor.Evaluate(rootCtx, true)
				if report.OverallStatus != health.StatusHealthy {
					logger.Warn("background health refresh", slog.String("status", string(report.OverallStatus)))
				}
			case <-rootCtx.Done():
				return
			}
		}
	}()

	// HTTP-поверхность
	seasonHandler := handlers.NewSeasonHandler(seasonService, fixtureService, scheduleService, standingsService, registry, schedulingDefaults, logger)
	matchHandler := handlers.NewMatchHandler(scheduleService, standingsService, registry, logger)
	healthHandler := handlers.NewHealthHandler(monitor, registry, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, seasonHandler, matchHandler, healthHandler, webSocketHandler, registry)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
