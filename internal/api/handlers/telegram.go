// telegram.go — обработчик ручной пересылки изображения в Telegram.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/service"
)

// sendImageRequest — тело POST /api/telegram/send-image.
// Ключи соответствуют формату фронтенда портала.
type sendImageRequest struct {
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
	ChatID   string `json:"chatId"`
}

// SendTelegramImage — POST /api/telegram/send-image.
// Относительный путь конвертируется в публичный URL хранилища;
// ошибка Bot API → 502. Доступ: admin.
func (h *APIHandler) SendTelegramImage(w http.ResponseWriter, r *http.Request) {
	var req sendImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageURL == "" || req.ChatID == "" {
		apierrors.ValidationError(w, "Требуются imageUrl и chatId")
		return
	}

	if !h.tg.Enabled() {
		h.writeServiceError(w,
			fmt.Errorf("%w: пересылка не настроена, отсутствует токен бота", service.ErrTelegramUnavailable),
			"Ошибка пересылки в Telegram")
		return
	}

	photoURL := req.ImageURL
	if !strings.HasPrefix(photoURL, "http://") && !strings.HasPrefix(photoURL, "https://") {
		photoURL = h.files.PublicURL(strings.TrimPrefix(photoURL, "/"))
	}

	if err := h.tg.SendPhoto(r.Context(), req.ChatID, photoURL, req.Caption); err != nil {
		h.logger.Error("Ошибка отправки изображения в Telegram",
			"chat_id", req.ChatID, "error", err)
		h.writeServiceError(w,
			fmt.Errorf("%w: не удалось отправить изображение", service.ErrTelegramUnavailable),
			"Ошибка пересылки в Telegram")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
