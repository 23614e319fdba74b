// dashboard.go — обработчик агрегированной статистики админ-дашборда.
package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
)

// DashboardStats — GET /api/admin/dashboard-stats?inactiveDays=N.
// Собирает один консистентный снимок данных и строит из него отчёт:
// KPI, тренды заявок за 12 месяцев, распределение по филиалам,
// срочные задачи, неактивные пользователи и последние действия.
// Любая ошибка чтения снимка скрывается за одним обобщённым ответом.
// Доступ: admin или operator.
func (h *APIHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	inactiveDays := 0
	if raw := r.URL.Query().Get("inactiveDays"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			inactiveDays = v
		}
	}

	stats, err := h.stats.Build(r.Context(), inactiveDays)
	if err != nil {
		h.logger.Error("Ошибка построения статистики дашборда", "error", err)
		apierrors.InternalError(w, "Failed to fetch stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
