package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// userColumns — общий список колонок таблицы users.
const userColumns = `id, provider_id, name, email, image, provider,
	is_admin, is_operator, shop_name, phone, address,
	bank_account, bank_name, note, created_at`

// UserRepository — интерфейс CRUD для таблицы users.
type UserRepository interface {
	// Create создаёт нового пользователя.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя по UUID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByProviderID возвращает пользователя по идентификатору LINE.
	GetByProviderID(ctx context.Context, providerID string) (*model.User, error)
	// UpdateProfile обновляет name/email/image при повторном входе.
	UpdateProfile(ctx context.Context, id, name string, email, image *string) error
	// Update обновляет редактируемые администратором поля.
	Update(ctx context.Context, u *model.User) error
	// Delete удаляет пользователя и каскадно все связанные записи.
	Delete(ctx context.Context, id string) error
	// ListAll возвращает всех пользователей, новые первыми.
	ListAll(ctx context.Context) ([]*model.User, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (provider_id, name, email, image, provider,
			shop_name, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_admin, is_operator, created_at`

	err := r.db.QueryRow(ctx, query,
		u.ProviderID, u.Name, u.Email, u.Image, u.Provider,
		u.ShopName, u.Phone,
	).Scan(&u.ID, &u.IsAdmin, &u.IsOperator, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: provider_id уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, providerID))
}

func (r *userRepo) scanOne(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.ProviderID, &u.Name, &u.Email, &u.Image, &u.Provider,
		&u.IsAdmin, &u.IsOperator, &u.ShopName, &u.Phone, &u.Address,
		&u.BankAccount, &u.BankName, &u.Note, &u.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id, name string, email, image *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET name = $2, email = COALESCE($3, email), image = $4
		WHERE id = $1`, id, name, email, image)
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, is_admin = $4, is_operator = $5,
			shop_name = $6, phone = $7, address = $8,
			bank_account = $9, bank_name = $10, note = $11
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.IsAdmin, u.IsOperator,
		u.ShopName, u.Phone, u.Address,
		u.BankAccount, u.BankName, u.Note,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID, &u.ProviderID, &u.Name, &u.Email, &u.Image, &u.Provider,
			&u.IsAdmin, &u.IsOperator, &u.ShopName, &u.Phone, &u.Address,
			&u.BankAccount, &u.BankName, &u.Note, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}
