// Пакет model — доменные модели портала прайс-листов.
package model

import "time"

// User — пользователь портала (владелец магазина, оператор или админ).
// Создаётся при первом входе через LINE Login.
type User struct {
	// ID — UUID пользователя
	ID string `json:"id"`
	// ProviderID — sub из LINE id_token
	ProviderID string `json:"provider_id"`
	// Name — отображаемое имя из LINE профиля
	Name string `json:"name"`
	// Email — электронная почта (LINE отдаёт опционально)
	Email *string `json:"email,omitempty"`
	// Image — URL аватара из LINE профиля
	Image *string `json:"image,omitempty"`
	// Provider — идентификатор IdP (всегда "line")
	Provider string `json:"provider"`
	// IsAdmin — флаг роли администратора
	IsAdmin bool `json:"is_admin"`
	// IsOperator — флаг роли оператора
	IsOperator bool `json:"is_operator"`
	// ShopName — название магазина
	ShopName *string `json:"shop_name,omitempty"`
	// Phone — контактный телефон
	Phone *string `json:"phone,omitempty"`
	// Address — адрес магазина
	Address *string `json:"address,omitempty"`
	// BankAccount — номер банковского счёта для выплат
	BankAccount *string `json:"bank_account,omitempty"`
	// BankName — название банка
	BankName *string `json:"bank_name,omitempty"`
	// Note — заметка администратора
	Note *string `json:"note,omitempty"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`

	// UserBranches — привязки к филиалам (заполняется join-запросом)
	UserBranches []*UserBranch `json:"user_branches,omitempty"`
	// GroupAccess — выданные доступы к прайс-группам (заполняется join-запросом)
	GroupAccess []*UserGroupAccess `json:"user_group_access,omitempty"`
}

// UserBranch — привязка пользователя к филиалу.
type UserBranch struct {
	// ID — UUID привязки
	ID string `json:"id"`
	// UserID — UUID пользователя
	UserID string `json:"user_id"`
	// BranchID — UUID филиала
	BranchID string `json:"branch_id"`
	// AssignedBy — UUID назначившего (админ/оператор)
	AssignedBy *string `json:"assigned_by,omitempty"`
	// CreatedAt — время привязки
	CreatedAt time.Time `json:"created_at"`

	// Branch — филиал (заполняется join-запросом)
	Branch *Branch `json:"branch,omitempty"`
}
