// uploads.go — сервис загрузки изображений прайсов.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
	"github.com/Joyboy-it/Line-price/internal/storage/filestore"
	"github.com/Joyboy-it/Line-price/internal/telegram"
)

// UploadResult — результат загрузки одного файла.
type UploadResult struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PublicURL string `json:"public_url"`
}

// UploadFile — один файл из multipart-запроса замены изображений.
type UploadFile struct {
	Name   string
	Title  *string
	Reader io.Reader
}

// UploadService — загрузка файлов в хранилище и замена наборов
// изображений прайс-групп.
type UploadService struct {
	files     *filestore.FileStore
	groupRepo repository.PriceGroupRepository
	tg        *telegram.Client
	audit     *AuditService
	logger    *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(
	files *filestore.FileStore,
	groupRepo repository.PriceGroupRepository,
	tg *telegram.Client,
	audit *AuditService,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		files:     files,
		groupRepo: groupRepo,
		tg:        tg,
		audit:     audit,
		logger:    logger.With(slog.String("component", "upload_service")),
	}
}

// Upload сохраняет один файл в подкаталог folder хранилища.
func (s *UploadService) Upload(ctx context.Context, actorID, folder, filename string, r io.Reader) (*UploadResult, error) {
	if folder == "" {
		folder = "uploads"
	}

	saved, err := s.files.Save(r, folder, filename)
	if err != nil {
		return nil, fmt.Errorf("сохранение файла: %w", err)
	}

	name := path.Base(saved.FilePath)
	s.audit.Record(ctx, actorID, model.ActionUploadImage, model.UploadImageDetails{
		Folder:   folder,
		FileName: name,
		FilePath: saved.FilePath,
		FileSize: saved.Size,
	})

	return &UploadResult{
		FilePath:  saved.FilePath,
		FileName:  name,
		PublicURL: s.files.PublicURL(saved.FilePath),
	}, nil
}

// ReplaceGroupImages заменяет весь набор изображений прайс-группы.
// Старые записи и файлы удаляются, новые файлы сохраняются и
// регистрируются по одному. Операция не атомарна: при ошибке на
// N-м файле предыдущие уже записаны, ошибка называет файл.
// Если у группы настроен telegram_chat_id, каждое новое изображение
// пересылается в чат best-effort.
func (s *UploadService) ReplaceGroupImages(ctx context.Context, actorID, groupID string, uploads []UploadFile) ([]*model.PriceGroupImage, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение прайс-группы: %w", err)
	}

	oldPaths, err := s.groupRepo.DeleteImagesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("удаление старых изображений: %w", err)
	}
	if err := s.files.RemoveAll(oldPaths); err != nil {
		s.logger.Warn("Не удалось удалить старые файлы группы",
			slog.String("group_id", groupID),
			slog.String("error", err.Error()),
		)
	}

	images := make([]*model.PriceGroupImage, 0, len(uploads))
	for _, up := range uploads {
		saved, err := s.files.Save(up.Reader, "group-"+groupID, up.Name)
		if err != nil {
			return nil, fmt.Errorf("сохранение файла %s: %w", up.Name, err)
		}

		fileName := up.Name
		img := &model.PriceGroupImage{
			PriceGroupID: groupID,
			FilePath:     saved.FilePath,
			FileName:     &fileName,
			Title:        up.Title,
			UploadedBy:   &actorID,
		}
		if err := s.groupRepo.AddImage(ctx, img); err != nil {
			return nil, fmt.Errorf("регистрация файла %s: %w", up.Name, err)
		}
		images = append(images, img)
	}

	s.notifyTelegram(ctx, group, images)

	s.audit.Record(ctx, actorID, model.ActionUploadImage, model.UploadImageDetails{
		GroupID:    groupID,
		GroupName:  group.Name,
		ImageCount: len(images),
	})

	return images, nil
}

// notifyTelegram пересылает новые изображения в чат группы best-effort.
func (s *UploadService) notifyTelegram(ctx context.Context, group *model.PriceGroup, images []*model.PriceGroupImage) {
	if group.TelegramChatID == nil || *group.TelegramChatID == "" || !s.tg.Enabled() {
		return
	}

	for _, img := range images {
		url := s.files.PublicURL(img.FilePath)
		caption := group.Name
		if img.FileName != nil {
			caption = fmt.Sprintf("%s — %s", group.Name, *img.FileName)
		}
		if err := s.tg.SendPhoto(ctx, *group.TelegramChatID, url, caption); err != nil {
			s.logger.Warn("Не удалось отправить изображение в Telegram",
				slog.String("group_id", group.ID),
				slog.String("chat_id", *group.TelegramChatID),
				slog.String("error", err.Error()),
			)
		}
	}
}
