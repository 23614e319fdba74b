package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// AuthEvent — событие входа или регистрации для агрегации статистики.
type AuthEvent struct {
	UserID    string
	CreatedAt time.Time
}

// UserLogRepository — интерфейс для таблицы user_logs (журнал действий).
type UserLogRepository interface {
	// Insert добавляет запись в журнал.
	Insert(ctx context.Context, l *model.UserLog) error
	// List возвращает записи журнала вместе с пользователями,
	// новые первыми, с фильтрацией по user_id и action.
	List(ctx context.Context, userID, action *string, limit, offset int) ([]*model.UserLog, error)
	// Recent возвращает последние limit записей с пользователями.
	Recent(ctx context.Context, limit int) ([]*model.UserLog, error)
	// ListAuthEvents возвращает все события login/register
	// (для вычисления последней активности пользователей).
	ListAuthEvents(ctx context.Context) ([]AuthEvent, error)
}

// userLogRepo — реализация UserLogRepository.
type userLogRepo struct {
	db DBTX
}

// NewUserLogRepository создаёт репозиторий журнала действий.
func NewUserLogRepository(db DBTX) UserLogRepository {
	return &userLogRepo{db: db}
}

func (r *userLogRepo) Insert(ctx context.Context, l *model.UserLog) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_logs (user_id, action, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		l.UserID, l.Action, l.Details, l.IPAddress, l.UserAgent,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

// logSelect — выборка записи журнала вместе с краткой карточкой пользователя.
const logSelect = `
	SELECT l.id, l.user_id, l.action, l.details, l.ip_address, l.user_agent, l.created_at,
		u.id, u.name, u.email, u.image
	FROM user_logs l
	JOIN users u ON u.id = l.user_id`

func (r *userLogRepo) List(ctx context.Context, userID, action *string, limit, offset int) ([]*model.UserLog, error) {
	var conditions []string
	var args []any
	argNum := 1

	if userID != nil {
		conditions = append(conditions, fmt.Sprintf("l.user_id = $%d", argNum))
		args = append(args, *userID)
		argNum++
	}
	if action != nil {
		conditions = append(conditions, fmt.Sprintf("l.action = $%d", argNum))
		args = append(args, *action)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`%s
		%s
		ORDER BY l.created_at DESC
		LIMIT $%d OFFSET $%d`, logSelect, where, argNum, argNum+1)

	args = append(args, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *userLogRepo) Recent(ctx context.Context, limit int) ([]*model.UserLog, error) {
	return r.query(ctx, logSelect+`
		ORDER BY l.created_at DESC
		LIMIT $1`, limit)
}

func (r *userLogRepo) query(ctx context.Context, query string, args ...any) ([]*model.UserLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала: %w", err)
	}
	defer rows.Close()

	var result []*model.UserLog
	for rows.Next() {
		l := &model.UserLog{User: &model.User{}}
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Details, &l.IPAddress, &l.UserAgent, &l.CreatedAt,
			&l.User.ID, &l.User.Name, &l.User.Email, &l.User.Image,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *userLogRepo) ListAuthEvents(ctx context.Context) ([]AuthEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, created_at
		FROM user_logs
		WHERE action IN ('login', 'register')`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения событий входа: %w", err)
	}
	defer rows.Close()

	var result []AuthEvent
	for rows.Next() {
		var ev AuthEvent
		if err := rows.Scan(&ev.UserID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования события входа: %w", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
