package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// PriceGroupRepository — интерфейс для таблиц price_groups и price_group_images.
// Поле last_updated_at вычисляется как время загрузки последнего изображения группы.
type PriceGroupRepository interface {
	// Create создаёт новую прайс-группу.
	Create(ctx context.Context, g *model.PriceGroup) error
	// GetByID возвращает группу по UUID.
	GetByID(ctx context.Context, id string) (*model.PriceGroup, error)
	// List возвращает все группы, отсортированные по имени.
	// branchID != nil — фильтрация по филиалу.
	List(ctx context.Context, branchID *string) ([]*model.PriceGroup, error)
	// Update обновляет группу.
	Update(ctx context.Context, g *model.PriceGroup) error
	// Delete удаляет группу; изображения удаляются каскадно.
	Delete(ctx context.Context, id string) error
	// Count возвращает общее количество групп.
	Count(ctx context.Context) (int, error)

	// AddImage добавляет изображение к группе.
	AddImage(ctx context.Context, img *model.PriceGroupImage) error
	// GetImage возвращает изображение по UUID.
	GetImage(ctx context.Context, id string) (*model.PriceGroupImage, error)
	// ListImages возвращает изображения группы, новые первыми.
	ListImages(ctx context.Context, groupID string) ([]*model.PriceGroupImage, error)
	// DeleteImage удаляет изображение и возвращает его file_path.
	DeleteImage(ctx context.Context, id string) (string, error)
	// DeleteImagesByGroup удаляет все изображения группы
	// и возвращает их file_path для очистки хранилища.
	DeleteImagesByGroup(ctx context.Context, groupID string) ([]string, error)
}

// priceGroupRepo — реализация PriceGroupRepository.
type priceGroupRepo struct {
	db DBTX
}

// NewPriceGroupRepository создаёт репозиторий прайс-групп.
func NewPriceGroupRepository(db DBTX) PriceGroupRepository {
	return &priceGroupRepo{db: db}
}

// groupSelect — выборка группы вместе с производным last_updated_at.
const groupSelect = `
	SELECT g.id, g.name, g.description, g.branch_id, g.telegram_chat_id, g.created_at,
		(SELECT MAX(i.created_at) FROM price_group_images i WHERE i.price_group_id = g.id)
	FROM price_groups g`

func (r *priceGroupRepo) Create(ctx context.Context, g *model.PriceGroup) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO price_groups (name, description, branch_id, telegram_chat_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		g.Name, g.Description, g.BranchID, g.TelegramChatID,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания прайс-группы: %w", err)
	}
	return nil
}

func (r *priceGroupRepo) GetByID(ctx context.Context, id string) (*model.PriceGroup, error) {
	g := &model.PriceGroup{}
	err := r.db.QueryRow(ctx, groupSelect+` WHERE g.id = $1`, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.BranchID, &g.TelegramChatID,
		&g.CreatedAt, &g.LastUpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения прайс-группы: %w", err)
	}
	return g, nil
}

func (r *priceGroupRepo) List(ctx context.Context, branchID *string) ([]*model.PriceGroup, error) {
	query := groupSelect
	var args []any
	if branchID != nil {
		query += ` WHERE g.branch_id = $1`
		args = append(args, *branchID)
	}
	query += ` ORDER BY g.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка прайс-групп: %w", err)
	}
	defer rows.Close()

	var result []*model.PriceGroup
	for rows.Next() {
		g := &model.PriceGroup{}
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Description, &g.BranchID, &g.TelegramChatID,
			&g.CreatedAt, &g.LastUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования прайс-группы: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *priceGroupRepo) Update(ctx context.Context, g *model.PriceGroup) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE price_groups
		SET name = $2, description = $3, branch_id = $4, telegram_chat_id = $5
		WHERE id = $1`,
		g.ID, g.Name, g.Description, g.BranchID, g.TelegramChatID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления прайс-группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *priceGroupRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM price_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления прайс-группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *priceGroupRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM price_groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта прайс-групп: %w", err)
	}
	return count, nil
}

func (r *priceGroupRepo) AddImage(ctx context.Context, img *model.PriceGroupImage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO price_group_images (price_group_id, file_path, file_name, title, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		img.PriceGroupID, img.FilePath, img.FileName, img.Title, img.UploadedBy,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка добавления изображения: %w", err)
	}
	return nil
}

func (r *priceGroupRepo) GetImage(ctx context.Context, id string) (*model.PriceGroupImage, error) {
	img := &model.PriceGroupImage{}
	err := r.db.QueryRow(ctx, `
		SELECT id, price_group_id, file_path, file_name, title, uploaded_by, created_at
		FROM price_group_images WHERE id = $1`, id,
	).Scan(&img.ID, &img.PriceGroupID, &img.FilePath, &img.FileName,
		&img.Title, &img.UploadedBy, &img.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения изображения: %w", err)
	}
	return img, nil
}

func (r *priceGroupRepo) ListImages(ctx context.Context, groupID string) ([]*model.PriceGroupImage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, price_group_id, file_path, file_name, title, uploaded_by, created_at
		FROM price_group_images
		WHERE price_group_id = $1
		ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения изображений: %w", err)
	}
	defer rows.Close()

	var result []*model.PriceGroupImage
	for rows.Next() {
		img := &model.PriceGroupImage{}
		if err := rows.Scan(
			&img.ID, &img.PriceGroupID, &img.FilePath, &img.FileName,
			&img.Title, &img.UploadedBy, &img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования изображения: %w", err)
		}
		result = append(result, img)
	}
	return result, rows.Err()
}

func (r *priceGroupRepo) DeleteImage(ctx context.Context, id string) (string, error) {
	var filePath string
	err := r.db.QueryRow(ctx, `
		DELETE FROM price_group_images WHERE id = $1
		RETURNING file_path`, id,
	).Scan(&filePath)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка удаления изображения: %w", err)
	}
	return filePath, nil
}

func (r *priceGroupRepo) DeleteImagesByGroup(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM price_group_images WHERE price_group_id = $1
		RETURNING file_path`, groupID)
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления изображений группы: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("ошибка сканирования file_path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
