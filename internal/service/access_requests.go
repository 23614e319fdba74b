// access_requests.go — сервис заявок на доступ к прайс-группам.
// Жизненный цикл заявки: pending → approved | rejected. Терминальные
// состояния не пересматриваются, гонка двух админов решается на уровне БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// AccessRequestService — сервис заявок на доступ.
type AccessRequestService struct {
	requestRepo repository.AccessRequestRepository
	accessRepo  repository.GroupAccessRepository
	branchRepo  repository.BranchRepository
	audit       *AuditService
	logger      *slog.Logger
}

// NewAccessRequestService создаёт сервис заявок.
func NewAccessRequestService(
	requestRepo repository.AccessRequestRepository,
	accessRepo repository.GroupAccessRepository,
	branchRepo repository.BranchRepository,
	audit *AuditService,
	logger *slog.Logger,
) *AccessRequestService {
	return &AccessRequestService{
		requestRepo: requestRepo,
		accessRepo:  accessRepo,
		branchRepo:  branchRepo,
		audit:       audit,
		logger:      logger.With(slog.String("component", "access_request_service")),
	}
}

// Create подаёт новую заявку от пользователя.
// У пользователя может быть не больше одной необработанной заявки.
func (s *AccessRequestService) Create(ctx context.Context, userID, branchID, shopName string, note *string) (*model.AccessRequest, error) {
	if shopName == "" {
		return nil, fmt.Errorf("%w: не указано название магазина", ErrValidation)
	}

	if _, err := s.branchRepo.GetByID(ctx, branchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: филиал не найден", ErrValidation)
		}
		return nil, fmt.Errorf("проверка филиала: %w", err)
	}

	pending, err := s.requestRepo.HasPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("проверка необработанных заявок: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("%w: у вас уже есть необработанная заявка", ErrConflict)
	}

	req := &model.AccessRequest{
		UserID:   userID,
		BranchID: branchID,
		ShopName: shopName,
		Note:     note,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionRequestAccess, model.RequestAccessDetails{
		RequestID: req.ID,
		BranchID:  branchID,
		ShopName:  shopName,
	})

	return req, nil
}

// List возвращает заявки с фильтром по статусу и общее количество.
func (s *AccessRequestService) List(ctx context.Context, status *string, limit, offset int) ([]*model.AccessRequest, int, error) {
	if status != nil {
		switch *status {
		case model.RequestStatusPending, model.RequestStatusApproved, model.RequestStatusRejected:
		default:
			return nil, 0, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, *status)
		}
	}

	requests, err := s.requestRepo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение заявок: %w", err)
	}
	total, err := s.requestRepo.Count(ctx, status)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт заявок: %w", err)
	}
	return requests, total, nil
}

// MyStatus возвращает последнюю заявку пользователя (для экрана ожидания).
func (s *AccessRequestService) MyStatus(ctx context.Context, userID string) (*model.AccessRequest, error) {
	req, err := s.requestRepo.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	return req, nil
}

// Approve одобряет заявку и выдаёт доступ к указанным прайс-группам.
// Выдача доступов идемпотентна: уже существующий доступ не дублируется.
func (s *AccessRequestService) Approve(ctx context.Context, actorID, requestID string, priceGroupIDs []string) (*model.AccessRequest, error) {
	if len(priceGroupIDs) == 0 {
		return nil, fmt.Errorf("%w: не выбраны прайс-группы", ErrValidation)
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	if req.Status != model.RequestStatusPending {
		return nil, ErrInvalidState
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, requestID, model.RequestStatusApproved, nil)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Заявку успели обработать параллельно
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("одобрение заявки: %w", err)
	}

	for _, groupID := range priceGroupIDs {
		if err := s.accessRepo.Grant(ctx, req.UserID, groupID, &actorID); err != nil {
			return nil, fmt.Errorf("выдача доступа к группе %s: %w", groupID, err)
		}
	}

	s.logger.Info("Заявка одобрена",
		slog.String("request_id", requestID),
		slog.String("user_id", req.UserID),
		slog.Int("groups", len(priceGroupIDs)),
	)
	s.audit.Record(ctx, actorID, model.ActionApproveRequest, model.ApproveRequestDetails{
		RequestID:     requestID,
		TargetUserID:  req.UserID,
		PriceGroupIDs: priceGroupIDs,
	})

	return updated, nil
}

// Reject отклоняет заявку с необязательной причиной.
func (s *AccessRequestService) Reject(ctx context.Context, actorID, requestID string, reason *string) (*model.AccessRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	if req.Status != model.RequestStatusPending {
		return nil, ErrInvalidState
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, requestID, model.RequestStatusRejected, reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("отклонение заявки: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionRejectRequest, model.RejectRequestDetails{
		RequestID:    requestID,
		TargetUserID: req.UserID,
		Reason:       reason,
	})

	return updated, nil
}
