package model

import "time"

// Статусы заявки на доступ. Переходы только pending → approved
// и pending → rejected, терминальные состояния не пересматриваются.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// AccessRequest — заявка пользователя на доступ к прайс-группам филиала.
type AccessRequest struct {
	// ID — UUID заявки
	ID string `json:"id"`
	// UserID — UUID заявителя
	UserID string `json:"user_id"`
	// BranchID — UUID филиала
	BranchID string `json:"branch_id"`
	// ShopName — название магазина заявителя
	ShopName string `json:"shop_name"`
	// Note — свободный комментарий заявителя (опционально)
	Note *string `json:"note,omitempty"`
	// Status — статус заявки (pending, approved, rejected)
	Status string `json:"status"`
	// RejectReason — причина отклонения (опционально)
	RejectReason *string `json:"reject_reason,omitempty"`
	// CreatedAt — время подачи
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего изменения статуса
	UpdatedAt time.Time `json:"updated_at"`

	// User — заявитель (заполняется join-запросом)
	User *User `json:"user,omitempty"`
	// Branch — филиал (заполняется join-запросом)
	Branch *Branch `json:"branch,omitempty"`
}
