// access_requests.go — обработчики /api/access-requests endpoints.
// Жизненный цикл заявок на доступ: pending → approved | rejected.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// accessRequestCreateRequest — тело POST /api/access-requests.
// Ключи соответствуют формату фронтенда портала.
type accessRequestCreateRequest struct {
	BranchID string  `json:"branchId"`
	ShopName string  `json:"shopName"`
	Note     *string `json:"note"`
}

// CreateAccessRequest — POST /api/access-requests.
// Создаёт pending-заявку от имени вызывающего пользователя.
// Повторная заявка при уже существующей pending → 409.
func (h *APIHandler) CreateAccessRequest(w http.ResponseWriter, r *http.Request) {
	var req accessRequestCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.requests.Create(r.Context(), middleware.UserIDFromContext(r.Context()),
		req.BranchID, req.ShopName, req.Note)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка создания заявки")
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

// accessRequestListResponse — ответ GET /api/access-requests.
type accessRequestListResponse struct {
	Items  []*model.AccessRequest `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// ListAccessRequests — GET /api/access-requests.
// Список заявок newest-first с пользователем и филиалом.
// Фильтр ?status=pending|approved|rejected.
// Доступ: admin или operator.
func (h *APIHandler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	status := optionalQuery(r, "status")

	items, total, err := h.requests.List(r.Context(), status, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка заявок")
		return
	}

	writeJSON(w, http.StatusOK, accessRequestListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// MyAccessRequest — GET /api/access-requests/me.
// Возвращает последнюю заявку вызывающего пользователя.
func (h *APIHandler) MyAccessRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.requests.MyStatus(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения заявки")
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// approveRequestBody — тело POST /api/access-requests/{id}/approve.
type approveRequestBody struct {
	PriceGroupIDs []string `json:"priceGroupIds"`
}

// ApproveAccessRequest — POST /api/access-requests/{id}/approve.
// pending → approved с выдачей доступов к выбранным группам.
// Повторное одобрение → 409.
// Доступ: admin или operator.
func (h *APIHandler) ApproveAccessRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req approveRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.PriceGroupIDs) == 0 {
		apierrors.ValidationError(w, "Не выбраны прайс-группы для выдачи доступа")
		return
	}

	request, err := h.requests.Approve(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.PriceGroupIDs)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка одобрения заявки")
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// rejectRequestBody — тело POST /api/access-requests/{id}/reject.
type rejectRequestBody struct {
	Reason *string `json:"reason"`
}

// RejectAccessRequest — POST /api/access-requests/{id}/reject.
// pending → rejected с необязательной причиной.
// Доступ: admin или operator.
func (h *APIHandler) RejectAccessRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rejectRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.requests.Reject(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.Reason)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка отклонения заявки")
		return
	}
	writeJSON(w, http.StatusOK, request)
}
