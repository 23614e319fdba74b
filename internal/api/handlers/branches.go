// branches.go — обработчики справочника филиалов.
package handlers

import (
	"net/http"
)

// ListBranches — GET /api/branches (публичный).
// Филиалы по алфавиту, через LRU-кэш.
func (h *APIHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	items, err := h.branches.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка филиалов")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// branchCreateRequest — тело POST /api/admin/branches.
type branchCreateRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// CreateBranch — POST /api/admin/branches. Доступ: admin.
// Дубликат кода филиала → 409.
func (h *APIHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req branchCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	branch, err := h.branches.Create(r.Context(), req.Name, req.Code)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка создания филиала")
		return
	}
	writeJSON(w, http.StatusCreated, branch)
}
