// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Price Portal мониторит до трёх зависимостей:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - LINE JWKS — HTTP checker к endpoint ключей подписи ID-токенов (critical)
//   - Telegram Bot API — HTTP checker к getMe (не critical, только если задан токен)
//
// Connection pool mode предпочтителен, т.к. отражает реальную способность сервиса
// работать с зависимостью и может обнаружить исчерпание пула соединений.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для LINE и Telegram
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// Имя вершины графа текущего приложения (e.g. "price-portal")
	ServiceID string
	// Имя группы в метриках (PP_DEPHEALTH_GROUP)
	Group string
	// URL подключения к PostgreSQL (для лейблов host/port, не для подключения)
	PostgresURL string
	// URL JWKS endpoint LINE
	LineJWKSURL string
	// Базовый URL Telegram Bot API (пусто — проверка не регистрируется)
	TelegramAPIURL string
	// Токен бота Telegram (часть health path getMe)
	TelegramBotToken string
	// Интервал проверки зависимостей (PP_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Использует connection pool mode для PostgreSQL: проверка выполняется
// через существующий *sql.DB (адаптер pgxpool), что позволяет обнаружить
// исчерпание пула соединений и отражает реальную способность сервиса
// работать с базой данных.
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool.
		// Проверка идёт через *sql.DB (адаптер pgxpool), что отражает реальное
		// состояние пула соединений и может обнаружить его исчерпание.
		// Используем pgcheck.New + dephealth.AddDependency напрямую,
		// чтобы не тянуть contrib/sqldb с транзитивной зависимостью на MySQL.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(cfg.PostgresURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
		// LINE JWKS — HTTP checker к endpoint ключей подписи.
		// По умолчанию dephealth проверяет /health, но у LINE такого endpoint нет.
		// Используем path самого JWKS URL — это подтверждает доступность ключей,
		// без которых middleware не может валидировать токены.
		dephealth.HTTP("line-jwks",
			dephealth.FromURL(cfg.LineJWKSURL),
			dephealth.WithHTTPHealthPath(healthPathFromURL(cfg.LineJWKSURL)),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		),
	}

	// Telegram опционален: без токена бота пересылка изображений отключена,
	// проверять нечего.
	if cfg.TelegramBotToken != "" && cfg.TelegramAPIURL != "" {
		opts = append(opts,
			dephealth.HTTP("telegram-api",
				dephealth.FromURL(cfg.TelegramAPIURL),
				dephealth.WithHTTPHealthPath("/bot"+cfg.TelegramBotToken+"/getMe"),
				dephealth.CheckInterval(cfg.CheckInterval),
				dephealth.Critical(false),
			),
		)
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthPathFromURL извлекает path из URL для использования как health path.
// Если path пуст, возвращает "/health".
func healthPathFromURL(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return "/health"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
