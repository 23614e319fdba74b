package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// AnnouncementRepository — интерфейс для таблиц announcements и announcement_images.
type AnnouncementRepository interface {
	// Create создаёт объявление вместе с изображениями.
	Create(ctx context.Context, a *model.Announcement) error
	// GetByID возвращает объявление с изображениями.
	GetByID(ctx context.Context, id string) (*model.Announcement, error)
	// ListPublished возвращает последние limit опубликованных объявлений
	// с изображениями, новые первыми.
	ListPublished(ctx context.Context, limit int) ([]*model.Announcement, error)
	// ListAll возвращает все объявления (для админки), новые первыми.
	ListAll(ctx context.Context) ([]*model.Announcement, error)
	// Update обновляет объявление и заменяет набор изображений.
	// Возвращает image_path удалённых изображений для очистки хранилища.
	Update(ctx context.Context, a *model.Announcement) ([]string, error)
	// Delete удаляет объявление и возвращает image_path его изображений.
	Delete(ctx context.Context, id string) ([]string, error)
}

// announcementRepo — реализация AnnouncementRepository.
type announcementRepo struct {
	db DBTX
}

// NewAnnouncementRepository создаёт репозиторий объявлений.
func NewAnnouncementRepository(db DBTX) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, a *model.Announcement) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (title, body, image_path, is_published, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.Title, a.Body, a.ImagePath, a.IsPublished, a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания объявления: %w", err)
	}

	for _, img := range a.Images {
		img.AnnouncementID = a.ID
		if err := r.insertImage(ctx, img); err != nil {
			return err
		}
	}
	return nil
}

func (r *announcementRepo) insertImage(ctx context.Context, img *model.AnnouncementImage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcement_images (announcement_id, image_path, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		img.AnnouncementID, img.ImagePath, img.SortOrder,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка добавления изображения объявления: %w", err)
	}
	return nil
}

func (r *announcementRepo) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	a := &model.Announcement{}
	err := r.db.QueryRow(ctx, `
		SELECT id, title, body, image_path, is_published, created_by, created_at, updated_at
		FROM announcements WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Body, &a.ImagePath, &a.IsPublished,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объявления: %w", err)
	}

	if err := r.attachImages(ctx, []*model.Announcement{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *announcementRepo) ListPublished(ctx context.Context, limit int) ([]*model.Announcement, error) {
	return r.list(ctx, `WHERE is_published = TRUE ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *announcementRepo) ListAll(ctx context.Context) ([]*model.Announcement, error) {
	return r.list(ctx, `ORDER BY created_at DESC`)
}

func (r *announcementRepo) list(ctx context.Context, tail string, args ...any) ([]*model.Announcement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, body, image_path, is_published, created_by, created_at, updated_at
		FROM announcements `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка объявлений: %w", err)
	}
	defer rows.Close()

	var result []*model.Announcement
	for rows.Next() {
		a := &model.Announcement{}
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Body, &a.ImagePath, &a.IsPublished,
			&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachImages(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachImages подгружает изображения для набора объявлений одним запросом
// и подставляет превью в image_path, если своё не задано.
func (r *announcementRepo) attachImages(ctx context.Context, list []*model.Announcement) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, 0, len(list))
	byID := make(map[string]*model.Announcement, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
		byID[a.ID] = a
		a.Images = []*model.AnnouncementImage{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, announcement_id, image_path, sort_order, created_at
		FROM announcement_images
		WHERE announcement_id = ANY($1)
		ORDER BY sort_order, created_at`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения изображений объявлений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		img := &model.AnnouncementImage{}
		if err := rows.Scan(
			&img.ID, &img.AnnouncementID, &img.ImagePath, &img.SortOrder, &img.CreatedAt,
		); err != nil {
			return fmt.Errorf("ошибка сканирования изображения объявления: %w", err)
		}
		if a, ok := byID[img.AnnouncementID]; ok {
			a.Images = append(a.Images, img)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, a := range list {
		if a.ImagePath == nil && len(a.Images) > 0 {
			a.ImagePath = &a.Images[0].ImagePath
		}
	}
	return nil
}

func (r *announcementRepo) Update(ctx context.Context, a *model.Announcement) ([]string, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE announcements
		SET title = $2, body = $3, image_path = $4, is_published = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Title, a.Body, a.ImagePath, a.IsPublished,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления объявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	removed, err := r.deleteImages(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	for _, img := range a.Images {
		img.AnnouncementID = a.ID
		if err := r.insertImage(ctx, img); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

func (r *announcementRepo) Delete(ctx context.Context, id string) ([]string, error) {
	removed, err := r.deleteImages(ctx, id)
	if err != nil {
		return nil, err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления объявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return removed, nil
}

func (r *announcementRepo) deleteImages(ctx context.Context, announcementID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM announcement_images WHERE announcement_id = $1
		RETURNING image_path`, announcementID)
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления изображений объявления: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("ошибка сканирования image_path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
