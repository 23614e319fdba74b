// uploads.go — обработчик разовой загрузки файла в хранилище.
package handlers

import (
	"net/http"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
)

// UploadFile — POST /api/admin/upload.
// Multipart {file, folder}; folder по умолчанию uploads.
// Возвращает {file_path, file_name, public_url}. Доступ: admin.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		apierrors.ValidationError(w, "Некорректный multipart-запрос: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Не передан файл")
		return
	}
	defer func() { _ = file.Close() }()

	folder := r.FormValue("folder")

	result, err := h.uploads.Upload(r.Context(), middleware.UserIDFromContext(r.Context()),
		folder, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка загрузки файла")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
