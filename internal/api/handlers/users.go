// users.go — обработчики /api/admin/users endpoints.
// Управление учётными записями: список, обновление профиля и ролей,
// привязки к филиалам и прайс-группам, удаление.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/rbac"
	"github.com/Joyboy-it/Line-price/internal/service"
)

// ListUsers — GET /api/admin/users.
// Возвращает пользователей с привязками к филиалам и доступами к группам.
// Доступ: admin или operator.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка пользователей")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser — GET /api/admin/users/{id}.
// Доступ: admin или operator.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения пользователя")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// userUpdateRequest — тело PATCH /api/admin/users/{id}.
// nil-поля не меняются.
type userUpdateRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	ShopName    *string `json:"shop_name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	BankAccount *string `json:"bank_account"`
	BankName    *string `json:"bank_name"`
	Note        *string `json:"note"`
	IsAdmin     *bool   `json:"is_admin"`
	IsOperator  *bool   `json:"is_operator"`
}

// UpdateUser — PATCH /api/admin/users/{id}.
// Профильные поля доступны admin и operator; изменение флагов ролей —
// только admin.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if (req.IsAdmin != nil || req.IsOperator != nil) &&
		(claims == nil || !claims.HasRole(rbac.RoleAdmin)) {
		apierrors.Forbidden(w, "Изменение ролей доступно только администратору")
		return
	}

	user, err := h.users.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id, service.UpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		ShopName:    req.ShopName,
		Phone:       req.Phone,
		Address:     req.Address,
		BankAccount: req.BankAccount,
		BankName:    req.BankName,
		Note:        req.Note,
		IsAdmin:     req.IsAdmin,
		IsOperator:  req.IsOperator,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка обновления пользователя")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteUser — DELETE /api/admin/users/{id}.
// Связанные доступы, заявки и привязки удаляются каскадом в БД.
// Доступ: admin.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления пользователя")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// branchLinksRequest — тело PUT /api/admin/users/{id}/branches.
type branchLinksRequest struct {
	BranchIDs []string `json:"branch_ids"`
}

// ReplaceUserBranches — PUT /api/admin/users/{id}/branches.
// Полностью заменяет привязки пользователя к филиалам.
// Доступ: admin или operator.
func (h *APIHandler) ReplaceUserBranches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req branchLinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	links, err := h.users.ReplaceBranches(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.BranchIDs)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка замены филиалов пользователя")
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// branchUnlinkRequest — тело DELETE /api/admin/users/{id}/branches.
type branchUnlinkRequest struct {
	BranchID string `json:"branch_id"`
}

// RemoveUserBranch — DELETE /api/admin/users/{id}/branches.
// Убирает одну привязку пользователя к филиалу.
// Доступ: admin или operator.
func (h *APIHandler) RemoveUserBranch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req branchUnlinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BranchID == "" {
		apierrors.ValidationError(w, "Не указан branch_id")
		return
	}

	links, err := h.users.RemoveBranch(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.BranchID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка удаления привязки к филиалу")
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// groupLinksRequest — тело PUT /api/admin/users/{id}/groups.
type groupLinksRequest struct {
	PriceGroupIDs []string `json:"price_group_ids"`
}

// ReplaceUserGroups — PUT /api/admin/users/{id}/groups.
// Полностью заменяет доступы пользователя к прайс-группам.
// Доступ: admin или operator.
func (h *APIHandler) ReplaceUserGroups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req groupLinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grants, err := h.users.ReplaceGroups(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.PriceGroupIDs)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка замены доступов пользователя")
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// groupUnlinkRequest — тело DELETE /api/admin/users/{id}/groups.
type groupUnlinkRequest struct {
	PriceGroupID string `json:"price_group_id"`
}

// RemoveUserGroup — DELETE /api/admin/users/{id}/groups.
// Убирает один доступ пользователя к прайс-группе.
// Доступ: admin или operator.
func (h *APIHandler) RemoveUserGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req groupUnlinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PriceGroupID == "" {
		apierrors.ValidationError(w, "Не указан price_group_id")
		return
	}

	grants, err := h.users.RemoveGroup(r.Context(), middleware.UserIDFromContext(r.Context()), id, req.PriceGroupID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка удаления доступа к группе")
		return
	}
	writeJSON(w, http.StatusOK, grants)
}
