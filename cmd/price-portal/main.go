// Точка входа Price Portal — backend портала прайс-листов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует хранилище файлов и Telegram-клиент, создаёт сервисный
// слой и API handlers, запускает мониторинг зависимостей (topologymetrics)
// и HTTP-сервер с LINE JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/Joyboy-it/Line-price/internal/api/handlers"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/config"
	"github.com/Joyboy-it/Line-price/internal/database"
	"github.com/Joyboy-it/Line-price/internal/repository"
	"github.com/Joyboy-it/Line-price/internal/server"
	"github.com/Joyboy-it/Line-price/internal/service"
	"github.com/Joyboy-it/Line-price/internal/storage/filestore"
	"github.com/Joyboy-it/Line-price/internal/telegram"
)

func main() {
	// 0. .env для локальной разработки (в кластере переменные заданы извне)
	_ = godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Price Portal запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if !cfg.TelegramEnabled() {
		logger.Warn("PP_TELEGRAM_BOT_TOKEN не задан, пересылка изображений в Telegram отключена")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище файлов
	files, err := filestore.New(cfg.StorageDataDir, cfg.StoragePublicBaseURL)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов",
			slog.String("dir", cfg.StorageDataDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище файлов готово", slog.String("dir", files.DataDir()))

	// 6. Telegram Bot API клиент
	tgClient := telegram.New(cfg.TelegramAPIBaseURL, cfg.TelegramBotToken, nil, logger)

	// 7. Repositories
	userRepo := repository.NewUserRepository(pool)
	branchRepo := repository.NewBranchRepository(pool)
	groupRepo := repository.NewPriceGroupRepository(pool)
	requestRepo := repository.NewAccessRequestRepository(pool)
	accessRepo := repository.NewGroupAccessRepository(pool)
	userBranchRepo := repository.NewUserBranchRepository(pool)
	announcementRepo := repository.NewAnnouncementRepository(pool)
	logRepo := repository.NewUserLogRepository(pool)

	// 8. Кэши публичных справочников
	branchCache := service.NewBranchCache(cfg.CacheSize, cfg.BranchesCacheTTL)
	announcementCache := service.NewAnnouncementCache(cfg.CacheSize, cfg.AnnouncementsCacheTTL)

	// 9. Services
	auditSvc := service.NewAuditService(logRepo, logger)
	userSvc := service.NewUserService(userRepo, userBranchRepo, accessRepo, auditSvc, logger)
	requestSvc := service.NewAccessRequestService(requestRepo, accessRepo, branchRepo, auditSvc, logger)
	groupSvc := service.NewPriceGroupService(groupRepo, accessRepo, files, auditSvc, logger)
	announcementSvc := service.NewAnnouncementService(announcementRepo, announcementCache, files, logger)
	branchSvc := service.NewBranchService(branchRepo, branchCache)
	uploadSvc := service.NewUploadService(files, groupRepo, tgClient, auditSvc, logger)
	statsSvc := service.NewStatsService(
		userRepo, requestRepo, groupRepo, logRepo,
		branchRepo, userBranchRepo, accessRepo,
		logger,
	)

	// 10. Readiness checkers (PostgreSQL + LINE JWKS)
	pgChecker := database.NewReadinessChecker(pool)
	lineChecker := middleware.NewLineReadinessChecker(cfg.LineJWKSURL, 5*time.Second)
	healthHandler := handlers.NewHealthHandler(pgChecker, lineChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		userSvc,
		requestSvc,
		groupSvc,
		announcementSvc,
		branchSvc,
		uploadSvc,
		statsSvc,
		auditSvc,
		files,
		tgClient,
		logger,
	)

	// 12. JWT middleware (LINE Login)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.LineJWKSURL,
		cfg.LineIssuer,
		cfg.LineChannelID,
		userRepo,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.LineJWKSURL),
		slog.String("issuer", cfg.LineIssuer),
	)

	// 13. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:        "price-portal",
		Group:            cfg.DephealthGroup,
		PostgresURL:      cfg.DatabaseURL(),
		LineJWKSURL:      cfg.LineJWKSURL,
		TelegramAPIURL:   cfg.TelegramAPIBaseURL,
		TelegramBotToken: cfg.TelegramBotToken,
		CheckInterval:    cfg.DephealthCheckInterval,
	}, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, files.DataDir())
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Price Portal остановлен")
}
