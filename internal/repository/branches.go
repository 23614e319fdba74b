package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// BranchRepository — интерфейс для таблицы branches.
type BranchRepository interface {
	// Create создаёт новый филиал.
	Create(ctx context.Context, b *model.Branch) error
	// GetByID возвращает филиал по UUID.
	GetByID(ctx context.Context, id string) (*model.Branch, error)
	// ListAll возвращает все филиалы, отсортированные по имени.
	ListAll(ctx context.Context) ([]*model.Branch, error)
}

// branchRepo — реализация BranchRepository.
type branchRepo struct {
	db DBTX
}

// NewBranchRepository создаёт репозиторий филиалов.
func NewBranchRepository(db DBTX) BranchRepository {
	return &branchRepo{db: db}
}

func (r *branchRepo) Create(ctx context.Context, b *model.Branch) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO branches (name, code)
		VALUES ($1, $2)
		RETURNING id, created_at`, b.Name, b.Code,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: код филиала уже используется", ErrConflict)
		}
		return fmt.Errorf("ошибка создания филиала: %w", err)
	}
	return nil
}

func (r *branchRepo) GetByID(ctx context.Context, id string) (*model.Branch, error) {
	b := &model.Branch{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, code, created_at FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Code, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения филиала: %w", err)
	}
	return b, nil
}

func (r *branchRepo) ListAll(ctx context.Context) ([]*model.Branch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, code, created_at FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка филиалов: %w", err)
	}
	defer rows.Close()

	var result []*model.Branch
	for rows.Next() {
		b := &model.Branch{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Code, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования филиала: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
