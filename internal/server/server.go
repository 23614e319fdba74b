// Пакет server — HTTP-сервер Price Portal с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Joyboy-it/Line-price/internal/api/handlers"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/config"
	"github.com/Joyboy-it/Line-price/internal/domain/rbac"
)

// publicPrefixes — пути, доступные без LINE-токена.
// Health и metrics проверяются Kubernetes напрямую; справочник филиалов,
// лента объявлений и раздача файлов открыты для страницы входа портала.
var publicPrefixes = []string{
	"/health/",
	"/metrics",
	"/files/",
	"/api/branches",
	"/api/announcements",
}

// Server — HTTP-сервер Price Portal.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
// fileDir — каталог хранилища изображений для раздачи через /files/.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, jwtAuth *middleware.JWTAuth, fileDir string) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.RequestMeta())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, publicPrefixes...))
	}

	registerRoutes(router, h, fileDir)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// registerRoutes описывает все маршруты портала и их требования к ролям.
func registerRoutes(router chi.Router, h *handlers.APIHandler, fileDir string) {
	requireUser := middleware.RequireUser()
	requireOperator := middleware.RequireRole(rbac.RoleOperator)
	requireAdmin := middleware.RequireRole(rbac.RoleAdmin)

	// Health и метрики
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	// Статика хранилища изображений
	router.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(fileDir))))

	// Публичные справочники
	router.Get("/api/branches", h.ListBranches)
	router.Get("/api/announcements", h.ListAnnouncements)

	// Вход: токен проверен в middleware, учётной записи может ещё не быть
	router.Post("/api/auth/login", h.Login)

	// Маршруты зарегистрированного пользователя
	router.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/api/access-requests", h.CreateAccessRequest)
		r.Get("/api/access-requests/me", h.MyAccessRequest)
		r.Get("/api/price-groups", h.ListPriceGroups)
		r.Get("/api/user-access", h.ListUserAccess)
		r.Get("/api/price-groups/{id}/images", h.ListGroupImages)
		r.Post("/api/user-logs", h.CreateUserLog)
	})

	// Маршруты операторов и администраторов
	router.Group(func(r chi.Router) {
		r.Use(requireUser, requireOperator)

		r.Get("/api/access-requests", h.ListAccessRequests)
		r.Post("/api/access-requests/{id}/approve", h.ApproveAccessRequest)
		r.Post("/api/access-requests/{id}/reject", h.RejectAccessRequest)

		r.Get("/api/admin/users", h.ListUsers)
		r.Get("/api/admin/users/{id}", h.GetUser)
		r.Patch("/api/admin/users/{id}", h.UpdateUser)
		r.Put("/api/admin/users/{id}/branches", h.ReplaceUserBranches)
		r.Delete("/api/admin/users/{id}/branches", h.RemoveUserBranch)
		r.Put("/api/admin/users/{id}/groups", h.ReplaceUserGroups)
		r.Delete("/api/admin/users/{id}/groups", h.RemoveUserGroup)

		r.Get("/api/user-logs", h.ListUserLogs)
		r.Get("/api/admin/dashboard-stats", h.DashboardStats)
	})

	// Маршруты только для администраторов
	router.Group(func(r chi.Router) {
		r.Use(requireUser, requireAdmin)

		r.Delete("/api/admin/users/{id}", h.DeleteUser)

		r.Get("/api/admin/price-groups", h.ListAdminPriceGroups)
		r.Post("/api/admin/price-groups", h.CreatePriceGroup)
		r.Get("/api/admin/price-groups/{id}", h.GetPriceGroup)
		r.Patch("/api/admin/price-groups/{id}", h.UpdatePriceGroup)
		r.Delete("/api/admin/price-groups/{id}", h.DeletePriceGroup)

		r.Post("/api/price-groups/{id}/images", h.AddGroupImage)
		r.Put("/api/price-groups/{id}/images", h.ReplaceGroupImages)
		r.Delete("/api/price-groups/{id}/images/clear", h.ClearGroupImages)
		r.Delete("/api/admin/price-group-images/{id}", h.DeletePriceGroupImage)

		r.Post("/api/admin/upload", h.UploadFile)
		r.Post("/api/telegram/send-image", h.SendTelegramImage)

		r.Post("/api/admin/branches", h.CreateBranch)

		r.Get("/api/admin/announcements", h.ListAdminAnnouncements)
		r.Post("/api/admin/announcements", h.CreateAnnouncement)
		r.Get("/api/admin/announcements/{id}", h.GetAnnouncement)
		r.Patch("/api/admin/announcements/{id}", h.UpdateAnnouncement)
		r.Delete("/api/admin/announcements/{id}", h.DeleteAnnouncement)
	})
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Применяем JWT middleware
			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
