// auth.go — обработчик /api/auth/login.
// Токен LINE уже проверен в middleware; здесь выполняется upsert
// учётной записи портала по provider_id.
package handlers

import (
	"net/http"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// loginResponse — ответ на успешный вход.
type loginResponse struct {
	User    *model.User `json:"user"`
	Created bool        `json:"created"`
}

// Login — POST /api/auth/login.
// Создаёт учётную запись при первом входе, иначе обновляет профиль
// из claims токена. Возвращает пользователя с флагами ролей.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	user, created, err := h.users.EnsureUser(r.Context(), claims)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка входа пользователя")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, loginResponse{User: user, Created: created})
}
