// announcements.go — обработчики объявлений.
// Публичная лента отдаётся через LRU-кэш; админский CRUD
// инвалидирует кэш при каждой мутации.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Joyboy-it/Line-price/internal/api/middleware"
)

// ListAnnouncements — GET /api/announcements (публичный).
// Последние опубликованные объявления с упорядоченными изображениями.
func (h *APIHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.announcements.ListPublished(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения объявлений")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListAdminAnnouncements — GET /api/admin/announcements.
// Все объявления, включая неопубликованные. Доступ: admin.
func (h *APIHandler) ListAdminAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.announcements.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения объявлений")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetAnnouncement — GET /api/admin/announcements/{id}. Доступ: admin.
func (h *APIHandler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	item, err := h.announcements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения объявления")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// announcementRequest — тело POST и PATCH /api/admin/announcements.
// ImagePaths — полный новый набор изображений (sort_order = порядок в списке).
type announcementRequest struct {
	Title       string   `json:"title"`
	Body        *string  `json:"body"`
	IsPublished bool     `json:"is_published"`
	ImagePaths  []string `json:"image_paths"`
}

// CreateAnnouncement — POST /api/admin/announcements. Доступ: admin.
func (h *APIHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.announcements.Create(r.Context(), middleware.UserIDFromContext(r.Context()),
		req.Title, req.Body, req.IsPublished, req.ImagePaths)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка создания объявления")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateAnnouncement — PATCH /api/admin/announcements/{id}.
// Набор изображений заменяется целиком. Доступ: admin.
func (h *APIHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.announcements.Update(r.Context(), chi.URLParam(r, "id"),
		req.Title, req.Body, req.IsPublished, req.ImagePaths)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка обновления объявления")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteAnnouncement — DELETE /api/admin/announcements/{id}.
// Удаляет объявление вместе с файлами изображений. Доступ: admin.
func (h *APIHandler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := h.announcements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления объявления")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
