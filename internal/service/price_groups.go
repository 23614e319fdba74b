// price_groups.go — сервис прайс-групп и их изображений.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// FileRemover — удаление файлов из хранилища.
// Реализуется filestore.FileStore.
type FileRemover interface {
	Remove(filePath string) error
}

// PriceGroupService — сервис прайс-групп.
type PriceGroupService struct {
	groupRepo  repository.PriceGroupRepository
	accessRepo repository.GroupAccessRepository
	files      FileRemover
	audit      *AuditService
	logger     *slog.Logger
}

// NewPriceGroupService создаёт сервис прайс-групп.
func NewPriceGroupService(
	groupRepo repository.PriceGroupRepository,
	accessRepo repository.GroupAccessRepository,
	files FileRemover,
	audit *AuditService,
	logger *slog.Logger,
) *PriceGroupService {
	return &PriceGroupService{
		groupRepo:  groupRepo,
		accessRepo: accessRepo,
		files:      files,
		audit:      audit,
		logger:     logger.With(slog.String("component", "price_group_service")),
	}
}

// List возвращает прайс-группы, отсортированные по имени.
// branchID != nil — только группы указанного филиала.
func (s *PriceGroupService) List(ctx context.Context, branchID *string) ([]*model.PriceGroup, error) {
	return s.groupRepo.List(ctx, branchID)
}

// Get возвращает прайс-группу по UUID.
func (s *PriceGroupService) Get(ctx context.Context, id string) (*model.PriceGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение прайс-группы: %w", err)
	}
	return group, nil
}

// ListByUser возвращает прайс-группы, доступные пользователю.
func (s *PriceGroupService) ListByUser(ctx context.Context, userID string) ([]*model.UserGroupAccess, error) {
	return s.accessRepo.ListByUser(ctx, userID)
}

// Create создаёт новую прайс-группу от имени администратора actorID.
func (s *PriceGroupService) Create(ctx context.Context, actorID, name string, description, branchID, telegramChatID *string) (*model.PriceGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: не указано название группы", ErrValidation)
	}

	group := &model.PriceGroup{
		Name:           name,
		Description:    description,
		BranchID:       branchID,
		TelegramChatID: telegramChatID,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("создание прайс-группы: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionCreateGroup, model.GroupDetails{
		GroupID:     group.ID,
		GroupName:   group.Name,
		Description: description,
	})

	return group, nil
}

// Update обновляет прайс-группу.
func (s *PriceGroupService) Update(ctx context.Context, actorID, id, name string, description, branchID, telegramChatID *string) (*model.PriceGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: не указано название группы", ErrValidation)
	}

	group := &model.PriceGroup{
		ID:             id,
		Name:           name,
		Description:    description,
		BranchID:       branchID,
		TelegramChatID: telegramChatID,
	}
	if err := s.groupRepo.Update(ctx, group); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление прайс-группы: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionEditGroup, model.GroupDetails{
		GroupID:     id,
		GroupName:   name,
		Description: description,
	})

	return s.groupRepo.GetByID(ctx, id)
}

// Delete удаляет прайс-группу вместе с изображениями.
// Файлы из хранилища удаляются best-effort: ошибка удаления файла
// логируется, но операцию не прерывает.
func (s *PriceGroupService) Delete(ctx context.Context, actorID, id string) error {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение прайс-группы: %w", err)
	}

	paths, err := s.groupRepo.DeleteImagesByGroup(ctx, id)
	if err != nil {
		return fmt.Errorf("удаление изображений группы: %w", err)
	}
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление прайс-группы: %w", err)
	}

	s.removeFiles(paths)

	s.audit.Record(ctx, actorID, model.ActionDeleteGroup, model.GroupDetails{
		GroupID:     id,
		GroupName:   group.Name,
		Description: group.Description,
	})

	return nil
}

// ListImages возвращает изображения группы для привилегированного
// пользователя (админ или оператор).
func (s *PriceGroupService) ListImages(ctx context.Context, groupID string) ([]*model.PriceGroupImage, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groupRepo.ListImages(ctx, groupID)
}

// ListImagesForUser возвращает изображения группы для обычного пользователя.
// Требуется выданный доступ к группе; просмотр журналируется как view_price.
func (s *PriceGroupService) ListImagesForUser(ctx context.Context, userID, groupID string) ([]*model.PriceGroupImage, error) {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.accessRepo.HasAccess(ctx, userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("проверка доступа: %w", err)
	}
	if !allowed {
		return nil, ErrForbidden
	}

	images, err := s.groupRepo.ListImages(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("получение изображений: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionViewPrice, model.ViewDetails{
		TargetID: groupID,
		Title:    group.Name,
	})

	return images, nil
}

// AddImage регистрирует уже загруженный файл как изображение группы.
func (s *PriceGroupService) AddImage(ctx context.Context, actorID, groupID, filePath string, fileName, title *string) (*model.PriceGroupImage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: не указан file_path", ErrValidation)
	}
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}

	img := &model.PriceGroupImage{
		PriceGroupID: groupID,
		FilePath:     filePath,
		FileName:     fileName,
		Title:        title,
		UploadedBy:   &actorID,
	}
	if err := s.groupRepo.AddImage(ctx, img); err != nil {
		return nil, fmt.Errorf("добавление изображения: %w", err)
	}
	return img, nil
}

// DeleteImage удаляет одно изображение группы вместе с файлом.
func (s *PriceGroupService) DeleteImage(ctx context.Context, id string) error {
	path, err := s.groupRepo.DeleteImage(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление изображения: %w", err)
	}
	s.removeFiles([]string{path})
	return nil
}

// ClearImages удаляет все изображения группы вместе с файлами.
// Возвращает число удалённых записей.
func (s *PriceGroupService) ClearImages(ctx context.Context, groupID string) (int, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return 0, err
	}
	paths, err := s.groupRepo.DeleteImagesByGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("удаление изображений группы: %w", err)
	}
	s.removeFiles(paths)
	return len(paths), nil
}

// removeFiles удаляет файлы из хранилища best-effort.
func (s *PriceGroupService) removeFiles(paths []string) {
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			s.logger.Warn("Не удалось удалить файл из хранилища",
				slog.String("file_path", p),
				slog.String("error", err.Error()),
			)
		}
	}
}
