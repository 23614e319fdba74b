// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — недостаточно прав для операции.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInvalidState — операция неприменима к текущему состоянию ресурса
	// (например, повторная обработка уже рассмотренной заявки).
	ErrInvalidState = errors.New("ресурс уже обработан")
	// ErrTelegramUnavailable — Telegram Bot API недоступен.
	ErrTelegramUnavailable = errors.New("Telegram Bot API недоступен")
)
