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

	"github.com/Dosada05/poker-league/cache"
	"github.com/Dosada05/poker-league/config"
	"github.com/Dosada05/poker-league/db"
	"github.com/Dosada05/poker-league/handlers"
	"github.com/Dosada05/poker-league/live"
	"github.com/Dosada05/poker-league/middleware"
	"github.com/Dosada05/poker-league/repositories"
	api "github.com/Dosada05/poker-league/routes"
	"github.com/Dosada05/poker-league/services"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

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
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Кэш рейтинга опционален: без REDIS_ADDR каждый запрос пересчитывается.
	var rankingCache services.RankingCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisRankingCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RankingTTL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Error("failed to close redis connection", slog.Any("error", err))
			}
		}()
		rankingCache = redisCache
		logger.Info("ranking cache enabled", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("ranking cache disabled")
	}

	clock := clockwork.NewRealClock()

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(clock)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	blindLevelRepo := repositories.NewPostgresBlindLevelRepository(dbConn)
	gameDateRepo := repositories.NewPostgresGameDateRepository(dbConn)
	eliminationRepo := repositories.NewPostgresEliminationRepository(dbConn)
	timerRepo := repositories.NewPostgresTimerRepository(dbConn)
	overrideRepo := repositories.NewPostgresPointsOverrideRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	playerService := services.NewPlayerService(playerRepo)
	pointsService := services.NewPointsService(overrideRepo)
	rankingService := services.NewRankingService(gameDateRepo, eliminationRepo, playerRepo, rankingCache)
	timerEngine := services.NewTimerEngine(
		dbConn,
		timerRepo,
		gameDateRepo,
		blindLevelRepo,
		wsHub,
		clock,
		logger,
	)
	eliminationService := services.NewEliminationService(
		dbConn,
		eliminationRepo,
		gameDateRepo,
		pointsService,
		rankingService,
		timerEngine,
		wsHub,
		logger,
	)
	gameDateService := services.NewGameDateService(
		dbConn,
		gameDateRepo,
		eliminationRepo,
		timerRepo,
		playerRepo,
		timerEngine,
		rankingService,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		blindLevelRepo,
		gameDateRepo,
		playerRepo,
		logger,
	)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	auth := middleware.NewAuth(cfg.JWTSecretKey)
	routeHandlers := api.Handlers{
		Player:      handlers.NewPlayerHandler(playerService),
		Tournament:  handlers.NewTournamentHandler(tournamentService, gameDateService),
		GameDate:    handlers.NewGameDateHandler(gameDateService),
		Timer:       handlers.NewTimerHandler(timerEngine),
		Elimination: handlers.NewEliminationHandler(eliminationService),
		Ranking:     handlers.NewRankingHandler(rankingService, pointsService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, timerEngine, eliminationService, logger),
	}
	logger.Info("HTTP handlers initialized")

	router := api.InitRoutes(routeHandlers, auth)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}

		// Останавливаем владельцев таймеров после сервера, чтобы не осталось
		// зомби-горутин, продолжающих авто-переключение уровней.
		timerEngine.TeardownAll()
		logger.Info("timer owners stopped")
	}
	logger.Info("application exited")
}
