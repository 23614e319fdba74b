package repository

import (
	"context"
	"fmt"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// GroupAccessRepository — интерфейс для таблицы user_group_access.
type GroupAccessRepository interface {
	// Grant выдаёт пользователю доступ к прайс-группе.
	// Повторная выдача того же доступа — no-op (идемпотентность).
	Grant(ctx context.Context, userID, priceGroupID string, grantedBy *string) error
	// ReplaceForUser заменяет весь набор доступов пользователя.
	ReplaceForUser(ctx context.Context, userID string, priceGroupIDs []string, grantedBy *string) error
	// HasAccess сообщает, есть ли у пользователя доступ к группе.
	HasAccess(ctx context.Context, userID, priceGroupID string) (bool, error)
	// ListByUser возвращает доступы пользователя вместе с прайс-группами
	// и производным last_updated_at каждой группы.
	ListByUser(ctx context.Context, userID string) ([]*model.UserGroupAccess, error)
	// ListAll возвращает все доступы с именами групп (для админ-списка
	// пользователей и агрегации статистики).
	ListAll(ctx context.Context) ([]*model.UserGroupAccess, error)
}

// groupAccessRepo — реализация GroupAccessRepository.
type groupAccessRepo struct {
	db DBTX
}

// NewGroupAccessRepository создаёт репозиторий доступов к прайс-группам.
func NewGroupAccessRepository(db DBTX) GroupAccessRepository {
	return &groupAccessRepo{db: db}
}

func (r *groupAccessRepo) Grant(ctx context.Context, userID, priceGroupID string, grantedBy *string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_group_access (user_id, price_group_id, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, price_group_id) DO NOTHING`,
		userID, priceGroupID, grantedBy)
	if err != nil {
		return fmt.Errorf("ошибка выдачи доступа: %w", err)
	}
	return nil
}

func (r *groupAccessRepo) ReplaceForUser(ctx context.Context, userID string, priceGroupIDs []string, grantedBy *string) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM user_group_access WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ошибка очистки доступов: %w", err)
	}

	for _, groupID := range priceGroupIDs {
		if err := r.Grant(ctx, userID, groupID, grantedBy); err != nil {
			return err
		}
	}
	return nil
}

func (r *groupAccessRepo) HasAccess(ctx context.Context, userID, priceGroupID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_group_access
			WHERE user_id = $1 AND price_group_id = $2
		)`, userID, priceGroupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки доступа: %w", err)
	}
	return exists, nil
}

func (r *groupAccessRepo) ListByUser(ctx context.Context, userID string) ([]*model.UserGroupAccess, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.user_id, a.price_group_id, a.granted_by, a.created_at,
			g.id, g.name, g.description, g.branch_id, g.telegram_chat_id, g.created_at,
			(SELECT MAX(i.created_at) FROM price_group_images i WHERE i.price_group_id = g.id)
		FROM user_group_access a
		JOIN price_groups g ON g.id = a.price_group_id
		WHERE a.user_id = $1
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения доступов пользователя: %w", err)
	}
	defer rows.Close()

	var result []*model.UserGroupAccess
	for rows.Next() {
		a := &model.UserGroupAccess{PriceGroup: &model.PriceGroup{}}
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.PriceGroupID, &a.GrantedBy, &a.CreatedAt,
			&a.PriceGroup.ID, &a.PriceGroup.Name, &a.PriceGroup.Description,
			&a.PriceGroup.BranchID, &a.PriceGroup.TelegramChatID, &a.PriceGroup.CreatedAt,
			&a.LastUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования доступа: %w", err)
		}
		a.PriceGroup.LastUpdatedAt = a.LastUpdatedAt
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *groupAccessRepo) ListAll(ctx context.Context) ([]*model.UserGroupAccess, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.user_id, a.price_group_id, a.granted_by, a.created_at,
			g.id, g.name
		FROM user_group_access a
		JOIN price_groups g ON g.id = a.price_group_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения всех доступов: %w", err)
	}
	defer rows.Close()

	var result []*model.UserGroupAccess
	for rows.Next() {
		a := &model.UserGroupAccess{PriceGroup: &model.PriceGroup{}}
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.PriceGroupID, &a.GrantedBy, &a.CreatedAt,
			&a.PriceGroup.ID, &a.PriceGroup.Name,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования доступа: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// UserBranchRepository — интерфейс для таблицы user_branches.
type UserBranchRepository interface {
	// ReplaceForUser заменяет весь набор филиалов пользователя.
	ReplaceForUser(ctx context.Context, userID string, branchIDs []string, assignedBy *string) error
	// ListByUser возвращает привязки пользователя вместе с филиалами.
	ListByUser(ctx context.Context, userID string) ([]*model.UserBranch, error)
	// ListAll возвращает все привязки с филиалами (для админ-списка).
	ListAll(ctx context.Context) ([]*model.UserBranch, error)
}

// userBranchRepo — реализация UserBranchRepository.
type userBranchRepo struct {
	db DBTX
}

// NewUserBranchRepository создаёт репозиторий привязок к филиалам.
func NewUserBranchRepository(db DBTX) UserBranchRepository {
	return &userBranchRepo{db: db}
}

func (r *userBranchRepo) ReplaceForUser(ctx context.Context, userID string, branchIDs []string, assignedBy *string) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM user_branches WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ошибка очистки привязок к филиалам: %w", err)
	}

	for _, branchID := range branchIDs {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO user_branches (user_id, branch_id, assigned_by)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, branch_id) DO NOTHING`,
			userID, branchID, assignedBy); err != nil {
			return fmt.Errorf("ошибка привязки к филиалу: %w", err)
		}
	}
	return nil
}

func (r *userBranchRepo) ListByUser(ctx context.Context, userID string) ([]*model.UserBranch, error) {
	return r.list(ctx, `WHERE ub.user_id = $1`, userID)
}

func (r *userBranchRepo) ListAll(ctx context.Context) ([]*model.UserBranch, error) {
	return r.list(ctx, "")
}

func (r *userBranchRepo) list(ctx context.Context, where string, args ...any) ([]*model.UserBranch, error) {
	query := fmt.Sprintf(`
		SELECT ub.id, ub.user_id, ub.branch_id, ub.assigned_by, ub.created_at,
			b.id, b.name, b.code, b.created_at
		FROM user_branches ub
		JOIN branches b ON b.id = ub.branch_id
		%s
		ORDER BY b.name`, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения привязок к филиалам: %w", err)
	}
	defer rows.Close()

	var result []*model.UserBranch
	for rows.Next() {
		ub := &model.UserBranch{Branch: &model.Branch{}}
		if err := rows.Scan(
			&ub.ID, &ub.UserID, &ub.BranchID, &ub.AssignedBy, &ub.CreatedAt,
			&ub.Branch.ID, &ub.Branch.Name, &ub.Branch.Code, &ub.Branch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования привязки: %w", err)
		}
		result = append(result, ub)
	}
	return result, rows.Err()
}
