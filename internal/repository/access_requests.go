package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// AccessRequestRepository — интерфейс для таблицы access_requests.
type AccessRequestRepository interface {
	// Create создаёт новую заявку на доступ.
	Create(ctx context.Context, req *model.AccessRequest) error
	// GetByID возвращает заявку по UUID вместе с пользователем и филиалом.
	GetByID(ctx context.Context, id string) (*model.AccessRequest, error)
	// List возвращает заявки с фильтрацией по статусу, новые первыми.
	List(ctx context.Context, status *string, limit, offset int) ([]*model.AccessRequest, error)
	// Count возвращает количество заявок с фильтрацией по статусу.
	Count(ctx context.Context, status *string) (int, error)
	// LatestByUser возвращает последнюю заявку пользователя с филиалом.
	LatestByUser(ctx context.Context, userID string) (*model.AccessRequest, error)
	// HasPending сообщает, есть ли у пользователя необработанная заявка.
	HasPending(ctx context.Context, userID string) (bool, error)
	// UpdateStatus переводит заявку из pending в новый статус.
	// Возвращает ErrNotFound, если заявки нет или она уже обработана.
	UpdateStatus(ctx context.Context, id, status string, rejectReason *string) (*model.AccessRequest, error)
	// ListAll возвращает все заявки без join (для агрегации статистики).
	ListAll(ctx context.Context) ([]*model.AccessRequest, error)
}

// accessRequestRepo — реализация AccessRequestRepository.
type accessRequestRepo struct {
	db DBTX
}

// NewAccessRequestRepository создаёт репозиторий заявок.
func NewAccessRequestRepository(db DBTX) AccessRequestRepository {
	return &accessRequestRepo{db: db}
}

func (r *accessRequestRepo) Create(ctx context.Context, req *model.AccessRequest) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO access_requests (user_id, branch_id, shop_name, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at, updated_at`,
		req.UserID, req.BranchID, req.ShopName, req.Note,
	).Scan(&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

// requestSelect — выборка заявки вместе с пользователем и филиалом.
const requestSelect = `
	SELECT r.id, r.user_id, r.branch_id, r.shop_name, r.note,
		r.status, r.reject_reason, r.created_at, r.updated_at,
		u.id, u.provider_id, u.name, u.email, u.image,
		b.id, b.name, b.code, b.created_at
	FROM access_requests r
	JOIN users u ON u.id = r.user_id
	JOIN branches b ON b.id = r.branch_id`

func (r *accessRequestRepo) scanJoined(row pgx.Row) (*model.AccessRequest, error) {
	req := &model.AccessRequest{User: &model.User{}, Branch: &model.Branch{}}
	err := row.Scan(
		&req.ID, &req.UserID, &req.BranchID, &req.ShopName, &req.Note,
		&req.Status, &req.RejectReason, &req.CreatedAt, &req.UpdatedAt,
		&req.User.ID, &req.User.ProviderID, &req.User.Name, &req.User.Email, &req.User.Image,
		&req.Branch.ID, &req.Branch.Name, &req.Branch.Code, &req.Branch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *accessRequestRepo) GetByID(ctx context.Context, id string) (*model.AccessRequest, error) {
	req, err := r.scanJoined(r.db.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return req, nil
}

func (r *accessRequestRepo) List(ctx context.Context, status *string, limit, offset int) ([]*model.AccessRequest, error) {
	var conditions []string
	var args []any
	argNum := 1

	if status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argNum))
		args = append(args, *status)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`%s
		%s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, requestSelect, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.AccessRequest
	for rows.Next() {
		req, err := r.scanJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *accessRequestRepo) Count(ctx context.Context, status *string) (int, error) {
	query := `SELECT COUNT(*) FROM access_requests`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}
	return count, nil
}

func (r *accessRequestRepo) LatestByUser(ctx context.Context, userID string) (*model.AccessRequest, error) {
	req, err := r.scanJoined(r.db.QueryRow(ctx, requestSelect+`
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
		LIMIT 1`, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки пользователя: %w", err)
	}
	return req, nil
}

func (r *accessRequestRepo) HasPending(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_requests
			WHERE user_id = $1 AND status = 'pending'
		)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки необработанной заявки: %w", err)
	}
	return exists, nil
}

func (r *accessRequestRepo) UpdateStatus(ctx context.Context, id, status string, rejectReason *string) (*model.AccessRequest, error) {
	req := &model.AccessRequest{}
	// Переход допустим только из pending — гонка двух админов
	// решается на уровне БД
	err := r.db.QueryRow(ctx, `
		UPDATE access_requests
		SET status = $2, reject_reason = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, branch_id, shop_name, note,
			status, reject_reason, created_at, updated_at`,
		id, status, rejectReason,
	).Scan(
		&req.ID, &req.UserID, &req.BranchID, &req.ShopName, &req.Note,
		&req.Status, &req.RejectReason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса заявки: %w", err)
	}
	return req, nil
}

func (r *accessRequestRepo) ListAll(ctx context.Context) ([]*model.AccessRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, branch_id, shop_name, note,
			status, reject_reason, created_at, updated_at
		FROM access_requests`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения всех заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.AccessRequest
	for rows.Next() {
		req := &model.AccessRequest{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.BranchID, &req.ShopName, &req.Note,
			&req.Status, &req.RejectReason, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
