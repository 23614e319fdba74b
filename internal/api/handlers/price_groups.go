// price_groups.go — обработчики прайс-групп и их изображений.
// Публичная часть — просмотр доступных групп; админская — CRUD
// и конвейер замены изображений.
package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/domain/rbac"
	"github.com/Joyboy-it/Line-price/internal/service"
)

// maxUploadSize — лимит размера multipart-запроса при загрузке изображений.
const maxUploadSize = 32 << 20 // 32 MiB

// ListPriceGroups — GET /api/price-groups.
// admin|operator видят все группы (фильтр ?branch_id);
// обычный пользователь — только группы, к которым выдан доступ.
func (h *APIHandler) ListPriceGroups(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if claims != nil && claims.HasRole(rbac.RoleOperator) {
		groups, err := h.groups.List(r.Context(), optionalQuery(r, "branch_id"))
		if err != nil {
			h.writeServiceError(w, err, "Ошибка получения списка прайс-групп")
			return
		}
		writeJSON(w, http.StatusOK, groups)
		return
	}

	grants, err := h.groups.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка прайс-групп")
		return
	}

	groups := make([]*model.PriceGroup, 0, len(grants))
	for _, g := range grants {
		if g.PriceGroup != nil {
			groups = append(groups, g.PriceGroup)
		}
	}
	writeJSON(w, http.StatusOK, groups)
}

// ListUserAccess — GET /api/user-access.
// Возвращает выданные вызывающему пользователю доступы с группой
// и датой последнего обновления прайса.
func (h *APIHandler) ListUserAccess(w http.ResponseWriter, r *http.Request) {
	grants, err := h.groups.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения доступов")
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// ListAdminPriceGroups — GET /api/admin/price-groups.
// Все группы с фильтром ?branch_id. Доступ: admin.
func (h *APIHandler) ListAdminPriceGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context(), optionalQuery(r, "branch_id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка прайс-групп")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetPriceGroup — GET /api/admin/price-groups/{id}. Доступ: admin.
func (h *APIHandler) GetPriceGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения прайс-группы")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// priceGroupRequest — тело POST и PATCH /api/admin/price-groups.
type priceGroupRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	BranchID       *string `json:"branch_id"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

// CreatePriceGroup — POST /api/admin/price-groups. Доступ: admin.
func (h *APIHandler) CreatePriceGroup(w http.ResponseWriter, r *http.Request) {
	var req priceGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groups.Create(r.Context(), middleware.UserIDFromContext(r.Context()),
		req.Name, req.Description, req.BranchID, req.TelegramChatID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка создания прайс-группы")
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// UpdatePriceGroup — PATCH /api/admin/price-groups/{id}. Доступ: admin.
func (h *APIHandler) UpdatePriceGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req priceGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groups.Update(r.Context(), middleware.UserIDFromContext(r.Context()),
		id, req.Name, req.Description, req.BranchID, req.TelegramChatID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка обновления прайс-группы")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// DeletePriceGroup — DELETE /api/admin/price-groups/{id}.
// Удаляет группу вместе с изображениями и файлами. Доступ: admin.
func (h *APIHandler) DeletePriceGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления прайс-группы")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroupImages — GET /api/price-groups/{id}/images.
// admin|operator видят изображения любой группы; обычному пользователю
// требуется выданный доступ (просмотр журналируется).
func (h *APIHandler) ListGroupImages(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	claims := middleware.ClaimsFromContext(r.Context())

	var (
		images []*model.PriceGroupImage
		err    error
	)
	if claims != nil && claims.HasRole(rbac.RoleOperator) {
		images, err = h.groups.ListImages(r.Context(), groupID)
	} else {
		images, err = h.groups.ListImagesForUser(r.Context(), middleware.UserIDFromContext(r.Context()), groupID)
	}
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения изображений")
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// addImageRequest — тело POST /api/price-groups/{id}/images.
type addImageRequest struct {
	FilePath string  `json:"file_path"`
	FileName *string `json:"file_name"`
	Title    *string `json:"title"`
}

// AddGroupImage — POST /api/price-groups/{id}/images.
// Регистрирует уже загруженный файл как изображение группы.
// Доступ: admin.
func (h *APIHandler) AddGroupImage(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var req addImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	img, err := h.groups.AddImage(r.Context(), middleware.UserIDFromContext(r.Context()),
		groupID, req.FilePath, req.FileName, req.Title)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка добавления изображения")
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

// ReplaceGroupImages — PUT /api/price-groups/{id}/images.
// Полная замена набора изображений группы: multipart с полем files
// (несколько файлов) и необязательными titles по порядку.
// Старые файлы и записи удаляются, новые сохраняются последовательно,
// затем best-effort пересылка в Telegram, если у группы задан чат.
// Доступ: admin.
func (h *APIHandler) ReplaceGroupImages(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		apierrors.ValidationError(w, "Некорректный multipart-запрос: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		apierrors.ValidationError(w, "Не переданы файлы изображений")
		return
	}
	titles := r.MultipartForm.Value["titles"]

	uploads := make([]service.UploadFile, 0, len(fileHeaders))
	opened := make([]multipart.File, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for i, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			apierrors.ValidationError(w, "Не удалось прочитать файл "+fh.Filename)
			return
		}
		opened = append(opened, f)

		var title *string
		if i < len(titles) && titles[i] != "" {
			t := titles[i]
			title = &t
		}
		uploads = append(uploads, service.UploadFile{
			Name:   fh.Filename,
			Title:  title,
			Reader: f,
		})
	}

	images, err := h.uploads.ReplaceGroupImages(r.Context(), middleware.UserIDFromContext(r.Context()), groupID, uploads)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка замены изображений группы")
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// clearImagesResponse — ответ DELETE /api/price-groups/{id}/images/clear.
type clearImagesResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

// ClearGroupImages — DELETE /api/price-groups/{id}/images/clear.
// Удаляет все изображения группы вместе с файлами. Доступ: admin.
func (h *APIHandler) ClearGroupImages(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.groups.ClearImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка очистки изображений группы")
		return
	}
	writeJSON(w, http.StatusOK, clearImagesResponse{Success: true, Deleted: deleted})
}

// DeletePriceGroupImage — DELETE /api/admin/price-group-images/{id}.
// Удаляет одно изображение (сначала файл, затем запись). Доступ: admin.
func (h *APIHandler) DeletePriceGroupImage(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.DeleteImage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления изображения")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
