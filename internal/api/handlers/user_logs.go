// user_logs.go — обработчики журнала действий пользователей.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// userLogCreateRequest — тело POST /api/user-logs.
type userLogCreateRequest struct {
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details"`
}

// CreateUserLog — POST /api/user-logs.
// Пользователь самостоятельно журналирует действие (например,
// просмотр объявления). Действие обязано входить в закрытый перечень.
func (h *APIHandler) CreateUserLog(w http.ResponseWriter, r *http.Request) {
	var req userLogCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !model.IsValidAction(req.Action) {
		apierrors.ValidationError(w, "Недопустимое действие: "+req.Action)
		return
	}

	var details any
	if len(req.Details) > 0 {
		details = req.Details
	}
	h.audit.Record(r.Context(), middleware.UserIDFromContext(r.Context()), req.Action, details)
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// userLogListResponse — ответ GET /api/user-logs.
type userLogListResponse struct {
	Items  []*model.UserLog `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ListUserLogs — GET /api/user-logs?limit&offset&user_id&action.
// Журнал newest-first с данными пользователя.
// Доступ: admin или operator.
func (h *APIHandler) ListUserLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	items, err := h.audit.List(r.Context(),
		optionalQuery(r, "user_id"), optionalQuery(r, "action"), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения журнала действий")
		return
	}

	writeJSON(w, http.StatusOK, userLogListResponse{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}
