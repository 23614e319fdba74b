// Пакет telegram — HTTP-клиент к Telegram Bot API.
// Используется для пересылки загруженных прайс-изображений
// в привязанные к группам чаты (метод sendPhoto).
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client — HTTP-клиент к Telegram Bot API.
type Client struct {
	baseURL  string // Базовый URL API (без trailing slash)
	botToken string

	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент Telegram Bot API.
// baseURL — базовый URL API (обычно https://api.telegram.org),
// переопределяется в тестах.
// botToken — токен бота; пустой токен означает, что пересылка отключена.
func New(baseURL, botToken string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		botToken:   botToken,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "telegram_client")),
	}
}

// Enabled сообщает, настроен ли клиент (задан токен бота).
func (c *Client) Enabled() bool {
	return c.botToken != ""
}

// sendPhotoRequest — тело запроса sendPhoto.
type sendPhotoRequest struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption"`
	ParseMode string `json:"parse_mode"`
}

// apiResponse — обёртка ответа Bot API.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendPhoto отправляет изображение по URL в указанный чат.
// caption передаётся с parse_mode=HTML.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	if !c.Enabled() {
		return fmt.Errorf("telegram-клиент не настроен: отсутствует токен бота")
	}

	payload, err := json.Marshal(sendPhotoRequest{
		ChatID:    chatID,
		Photo:     photoURL,
		Caption:   caption,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса sendPhoto: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса sendPhoto: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса к Telegram API: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("некорректный ответ Telegram API (HTTP %d): %w", resp.StatusCode, err)
	}

	if !apiResp.OK {
		return fmt.Errorf("Telegram API вернул ошибку %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	c.logger.Debug("Изображение отправлено в Telegram",
		slog.String("chat_id", chatID),
	)
	return nil
}

// CheckAPI проверяет доступность Bot API (метод getMe).
// Используется проверкой готовности зависимостей.
func (c *Client) CheckAPI(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/getMe", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса getMe: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса к Telegram API: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Telegram API вернул HTTP %d", resp.StatusCode)
	}
	return nil
}
