// audit.go — сервис журнала аудита.
// Записи аудита — best-effort: ошибка записи логируется, но никогда
// не прерывает бизнес-операцию, которая её породила.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// AuditService — запись действий пользователей в журнал аудита.
type AuditService struct {
	logRepo repository.UserLogRepository
	logger  *slog.Logger
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(logRepo repository.UserLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		logRepo: logRepo,
		logger:  logger.With(slog.String("component", "audit_service")),
	}
}

// Record записывает действие в журнал аудита.
// IP и User-Agent берутся из контекста запроса (middleware.RequestMeta).
// details — типизированный payload из model (LoginDetails, GroupDetails и т.д.).
func (s *AuditService) Record(ctx context.Context, userID, action string, details any) {
	var raw json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.logger.Error("Ошибка сериализации details аудита",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
			return
		}
		raw = data
	}

	entry := &model.UserLog{
		UserID:    userID,
		Action:    action,
		Details:   raw,
		IPAddress: middleware.ClientIPFromContext(ctx),
		UserAgent: middleware.UserAgentFromContext(ctx),
	}

	if err := s.logRepo.Insert(ctx, entry); err != nil {
		s.logger.Error("Ошибка записи в журнал аудита",
			slog.String("action", action),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// List возвращает записи журнала с фильтрами (для админки).
func (s *AuditService) List(ctx context.Context, userID, action *string, limit, offset int) ([]*model.UserLog, error) {
	if action != nil && !model.IsValidAction(*action) {
		return nil, ErrValidation
	}
	return s.logRepo.List(ctx, userID, action, limit, offset)
}
