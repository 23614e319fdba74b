// announcements.go — сервис объявлений портала.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// publishedLimit — сколько опубликованных объявлений видит портал.
const publishedLimit = 3

// AnnouncementService — сервис объявлений.
type AnnouncementService struct {
	repo   repository.AnnouncementRepository
	cache  *AnnouncementCache
	files  FileRemover
	logger *slog.Logger
}

// NewAnnouncementService создаёт сервис объявлений.
func NewAnnouncementService(
	repo repository.AnnouncementRepository,
	cache *AnnouncementCache,
	files FileRemover,
	logger *slog.Logger,
) *AnnouncementService {
	return &AnnouncementService{
		repo:   repo,
		cache:  cache,
		files:  files,
		logger: logger.With(slog.String("component", "announcement_service")),
	}
}

// ListPublished возвращает последние опубликованные объявления (из кэша).
func (s *AnnouncementService) ListPublished(ctx context.Context) ([]*model.Announcement, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}

	list, err := s.repo.ListPublished(ctx, publishedLimit)
	if err != nil {
		return nil, fmt.Errorf("получение объявлений: %w", err)
	}
	s.cache.Set(list)
	return list, nil
}

// ListAll возвращает все объявления, включая черновики (для админки).
func (s *AnnouncementService) ListAll(ctx context.Context) ([]*model.Announcement, error) {
	return s.repo.ListAll(ctx)
}

// Get возвращает объявление с изображениями.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение объявления: %w", err)
	}
	return a, nil
}

// Create создаёт объявление с упорядоченными изображениями.
func (s *AnnouncementService) Create(ctx context.Context, actorID, title string, body *string, isPublished bool, imagePaths []string) (*model.Announcement, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: не указан заголовок", ErrValidation)
	}
	if len(imagePaths) > model.MaxAnnouncementImages {
		return nil, fmt.Errorf("%w: не больше %d изображений на объявление", ErrValidation, model.MaxAnnouncementImages)
	}

	a := &model.Announcement{
		Title:       title,
		Body:        body,
		IsPublished: isPublished,
		CreatedBy:   &actorID,
		Images:      buildImages(imagePaths),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("создание объявления: %w", err)
	}

	s.cache.Invalidate()
	return a, nil
}

// Update обновляет объявление и заменяет набор изображений целиком.
// Файлы удалённых изображений чистятся best-effort.
func (s *AnnouncementService) Update(ctx context.Context, id, title string, body *string, isPublished bool, imagePaths []string) (*model.Announcement, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: не указан заголовок", ErrValidation)
	}
	if len(imagePaths) > model.MaxAnnouncementImages {
		return nil, fmt.Errorf("%w: не больше %d изображений на объявление", ErrValidation, model.MaxAnnouncementImages)
	}

	a := &model.Announcement{
		ID:          id,
		Title:       title,
		Body:        body,
		IsPublished: isPublished,
		Images:      buildImages(imagePaths),
	}
	removed, err := s.repo.Update(ctx, a)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление объявления: %w", err)
	}

	// Файл мог быть переиспользован в новом наборе — не трогаем такие
	kept := make(map[string]bool, len(imagePaths))
	for _, p := range imagePaths {
		kept[p] = true
	}
	for _, p := range removed {
		if kept[p] {
			continue
		}
		if err := s.files.Remove(p); err != nil {
			s.logger.Warn("Не удалось удалить файл из хранилища",
				slog.String("file_path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	s.cache.Invalidate()
	return s.Get(ctx, id)
}

// Delete удаляет объявление вместе с изображениями и их файлами.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	paths, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление объявления: %w", err)
	}

	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			s.logger.Warn("Не удалось удалить файл из хранилища",
				slog.String("file_path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	s.cache.Invalidate()
	return nil
}

// buildImages строит упорядоченный набор изображений из путей.
func buildImages(paths []string) []*model.AnnouncementImage {
	images := make([]*model.AnnouncementImage, 0, len(paths))
	for i, p := range paths {
		images = append(images, &model.AnnouncementImage{
			ImagePath: p,
			SortOrder: i,
		})
	}
	return images
}
