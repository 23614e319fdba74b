// handler.go — основной обработчик API Price Portal.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/service"
	"github.com/Joyboy-it/Line-price/internal/storage/filestore"
	"github.com/Joyboy-it/Line-price/internal/telegram"
)

// APIHandler — основной обработчик API Price Portal.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health        *HealthHandler
	users         *service.UserService
	requests      *service.AccessRequestService
	groups        *service.PriceGroupService
	announcements *service.AnnouncementService
	branches      *service.BranchService
	uploads       *service.UploadService
	stats         *service.StatsService
	audit         *service.AuditService
	files         *filestore.FileStore
	tg            *telegram.Client
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	users *service.UserService,
	requests *service.AccessRequestService,
	groups *service.PriceGroupService,
	announcements *service.AnnouncementService,
	branches *service.BranchService,
	uploads *service.UploadService,
	stats *service.StatsService,
	audit *service.AuditService,
	files *filestore.FileStore,
	tg *telegram.Client,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		users:         users,
		requests:      requests,
		groups:        groups,
		announcements: announcements,
		branches:      branches,
		uploads:       uploads,
		stats:         stats,
		audit:         audit,
		files:         files,
		tg:            tg,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON декодирует тело запроса в dst.
// При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// paginationParams извлекает limit и offset из query-параметров.
// Возвращает нормализованные значения (limit по умолчанию 50, максимум 200).
func paginationParams(r *http.Request) (int, int) {
	l := 50
	o := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			l = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			o = v
		}
	}

	if l < 1 {
		l = 1
	}
	if l > 200 {
		l = 200
	}
	if o < 0 {
		o = 0
	}

	return l, o
}

// optionalQuery возвращает query-параметр или nil, если он не задан.
func optionalQuery(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
// Неклассифицированные ошибки логируются и возвращаются как 500
// с обобщённым сообщением fallback.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrTelegramUnavailable):
		apierrors.TelegramUnavailable(w, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		apierrors.InternalError(w, fallback)
	}
}
