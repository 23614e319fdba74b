// Пакет service — бизнес-логика портала прайс-листов.
// users.go — сервис пользователей: вход через LINE, админское управление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// UserService — сервис пользователей.
type UserService struct {
	userRepo       repository.UserRepository
	userBranchRepo repository.UserBranchRepository
	accessRepo     repository.GroupAccessRepository
	audit          *AuditService
	logger         *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(
	userRepo repository.UserRepository,
	userBranchRepo repository.UserBranchRepository,
	accessRepo repository.GroupAccessRepository,
	audit *AuditService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		userBranchRepo: userBranchRepo,
		accessRepo:     accessRepo,
		audit:          audit,
		logger:         logger.With(slog.String("component", "user_service")),
	}
}

// EnsureUser обрабатывает вход через LINE: создаёт учётную запись при
// первом входе или обновляет профиль (name/email/image) при повторном.
// Возвращает пользователя и признак создания новой записи.
func (s *UserService) EnsureUser(ctx context.Context, claims *middleware.AuthClaims) (*model.User, bool, error) {
	existing, err := s.userRepo.GetByProviderID(ctx, claims.ProviderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("поиск пользователя по provider_id: %w", err)
	}

	var email, image *string
	if claims.Email != "" {
		email = &claims.Email
	}
	if claims.Picture != "" {
		image = &claims.Picture
	}

	if existing == nil {
		// Первый вход — регистрируем
		user := &model.User{
			ProviderID: claims.ProviderID,
			Name:       claims.Name,
			Email:      email,
			Image:      image,
			Provider:   "line",
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Параллельный первый вход с двух устройств: запись уже есть
				existing, err = s.userRepo.GetByProviderID(ctx, claims.ProviderID)
				if err != nil {
					return nil, false, fmt.Errorf("повторный поиск после конфликта: %w", err)
				}
				return existing, false, nil
			}
			return nil, false, fmt.Errorf("создание пользователя: %w", err)
		}

		s.logger.Info("Зарегистрирован новый пользователь",
			slog.String("user_id", user.ID),
			slog.String("name", user.Name),
		)
		s.audit.Record(ctx, user.ID, model.ActionRegister, model.LoginDetails{Name: user.Name})
		return user, true, nil
	}

	// Повторный вход — синхронизируем профиль из LINE
	if err := s.userRepo.UpdateProfile(ctx, existing.ID, claims.Name, email, image); err != nil {
		return nil, false, fmt.Errorf("обновление профиля: %w", err)
	}
	existing.Name = claims.Name
	if email != nil {
		existing.Email = email
	}
	if image != nil {
		existing.Image = image
	}

	s.audit.Record(ctx, existing.ID, model.ActionLogin, model.LoginDetails{Name: existing.Name})
	return existing, false, nil
}

// Get возвращает пользователя с привязками к филиалам и доступами к группам.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	branches, err := s.userBranchRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение филиалов пользователя: %w", err)
	}
	access, err := s.accessRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение доступов пользователя: %w", err)
	}

	user.UserBranches = branches
	user.GroupAccess = access
	return user, nil
}

// List возвращает всех пользователей с привязками и доступами (для админки).
// Привязки и доступы загружаются двумя запросами и раскладываются в память,
// чтобы не делать N+1 запросов.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}

	branches, err := s.userBranchRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение привязок к филиалам: %w", err)
	}
	access, err := s.accessRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение доступов: %w", err)
	}

	branchesByUser := make(map[string][]*model.UserBranch)
	for _, ub := range branches {
		branchesByUser[ub.UserID] = append(branchesByUser[ub.UserID], ub)
	}
	accessByUser := make(map[string][]*model.UserGroupAccess)
	for _, ga := range access {
		accessByUser[ga.UserID] = append(accessByUser[ga.UserID], ga)
	}

	for _, u := range users {
		u.UserBranches = branchesByUser[u.ID]
		u.GroupAccess = accessByUser[u.ID]
		if u.UserBranches == nil {
			u.UserBranches = []*model.UserBranch{}
		}
		if u.GroupAccess == nil {
			u.GroupAccess = []*model.UserGroupAccess{}
		}
	}

	return users, nil
}

// UpdateInput — редактируемые администратором поля пользователя.
// nil — поле не меняется.
type UpdateInput struct {
	Name        *string
	Email       *string
	ShopName    *string
	Phone       *string
	Address     *string
	BankAccount *string
	BankName    *string
	Note        *string
	IsAdmin     *bool
	IsOperator  *bool
}

// Update обновляет пользователя от имени администратора actorID.
// Изменение флагов ролей журналируется отдельным действием grant_admin.
func (s *UserService) Update(ctx context.Context, actorID, id string, in UpdateInput) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	var updatedFields []string
	rolesChanged := false

	if in.Name != nil && *in.Name != user.Name {
		user.Name = *in.Name
		updatedFields = append(updatedFields, "name")
	}
	if in.Email != nil {
		user.Email = in.Email
		updatedFields = append(updatedFields, "email")
	}
	if in.ShopName != nil {
		user.ShopName = in.ShopName
		updatedFields = append(updatedFields, "shop_name")
	}
	if in.Phone != nil {
		user.Phone = in.Phone
		updatedFields = append(updatedFields, "phone")
	}
	if in.Address != nil {
		user.Address = in.Address
		updatedFields = append(updatedFields, "address")
	}
	if in.BankAccount != nil {
		user.BankAccount = in.BankAccount
		updatedFields = append(updatedFields, "bank_account")
	}
	if in.BankName != nil {
		user.BankName = in.BankName
		updatedFields = append(updatedFields, "bank_name")
	}
	if in.Note != nil {
		user.Note = in.Note
		updatedFields = append(updatedFields, "note")
	}
	if in.IsAdmin != nil && *in.IsAdmin != user.IsAdmin {
		user.IsAdmin = *in.IsAdmin
		updatedFields = append(updatedFields, "is_admin")
		rolesChanged = true
	}
	if in.IsOperator != nil && *in.IsOperator != user.IsOperator {
		user.IsOperator = *in.IsOperator
		updatedFields = append(updatedFields, "is_operator")
		rolesChanged = true
	}

	if len(updatedFields) == 0 {
		return user, nil
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionEditUser, model.EditUserDetails{
		TargetUserID:  id,
		UpdatedFields: updatedFields,
	})
	if rolesChanged {
		s.audit.Record(ctx, actorID, model.ActionGrantAdmin, model.GrantAdminDetails{
			TargetUserID: id,
			IsAdmin:      in.IsAdmin,
			IsOperator:   in.IsOperator,
		})
	}

	return user, nil
}

// Delete удаляет пользователя; привязки, доступы и заявки удаляются каскадно.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	return nil
}

// ReplaceBranches заменяет привязки пользователя к филиалам.
func (s *UserService) ReplaceBranches(ctx context.Context, actorID, userID string, branchIDs []string) ([]*model.UserBranch, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if err := s.userBranchRepo.ReplaceForUser(ctx, userID, branchIDs, &actorID); err != nil {
		return nil, fmt.Errorf("замена филиалов пользователя: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionEditUser, model.EditUserDetails{
		TargetUserID:  userID,
		UpdatedFields: []string{"user_branches"},
	})

	return s.userBranchRepo.ListByUser(ctx, userID)
}

// ReplaceGroups заменяет доступы пользователя к прайс-группам.
func (s *UserService) ReplaceGroups(ctx context.Context, actorID, userID string, groupIDs []string) ([]*model.UserGroupAccess, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if err := s.accessRepo.ReplaceForUser(ctx, userID, groupIDs, &actorID); err != nil {
		return nil, fmt.Errorf("замена доступов пользователя: %w", err)
	}

	s.audit.Record(ctx, actorID, model.ActionEditUser, model.EditUserDetails{
		TargetUserID:  userID,
		UpdatedFields: []string{"user_group_access"},
	})

	return s.accessRepo.ListByUser(ctx, userID)
}

// RemoveBranch убирает одну привязку пользователя к филиалу.
// Реализовано через замену полного набора без указанного филиала.
func (s *UserService) RemoveBranch(ctx context.Context, actorID, userID, branchID string) ([]*model.UserBranch, error) {
	current, err := s.userBranchRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение филиалов пользователя: %w", err)
	}

	remaining := make([]string, 0, len(current))
	for _, ub := range current {
		if ub.BranchID != branchID {
			remaining = append(remaining, ub.BranchID)
		}
	}
	if len(remaining) == len(current) {
		return nil, ErrNotFound
	}

	return s.ReplaceBranches(ctx, actorID, userID, remaining)
}

// RemoveGroup убирает один доступ пользователя к прайс-группе.
func (s *UserService) RemoveGroup(ctx context.Context, actorID, userID, groupID string) ([]*model.UserGroupAccess, error) {
	current, err := s.accessRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение доступов пользователя: %w", err)
	}

	remaining := make([]string, 0, len(current))
	for _, ga := range current {
		if ga.PriceGroupID != groupID {
			remaining = append(remaining, ga.PriceGroupID)
		}
	}
	if len(remaining) == len(current) {
		return nil, ErrNotFound
	}

	return s.ReplaceGroups(ctx, actorID, userID, remaining)
}
