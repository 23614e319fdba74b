package model

import (
	"encoding/json"
	"time"
)

// Закрытое перечисление действий аудита. Журнал и его UI-фильтр
// принимают только эти значения.
const (
	ActionLogin            = "login"
	ActionRegister         = "register"
	ActionViewPrice        = "view_price"
	ActionApproveRequest   = "approve_request"
	ActionRejectRequest    = "reject_request"
	ActionCreateGroup      = "create_group"
	ActionEditGroup        = "edit_group"
	ActionDeleteGroup      = "delete_group"
	ActionUploadImage      = "upload_image"
	ActionEditUser         = "edit_user"
	ActionGrantAdmin       = "grant_admin"
	ActionRequestAccess    = "request_access"
	ActionViewAnnouncement = "view_announcement"
)

// validActions — множество допустимых действий аудита.
var validActions = map[string]bool{
	ActionLogin:            true,
	ActionRegister:         true,
	ActionViewPrice:        true,
	ActionApproveRequest:   true,
	ActionRejectRequest:    true,
	ActionCreateGroup:      true,
	ActionEditGroup:        true,
	ActionDeleteGroup:      true,
	ActionUploadImage:      true,
	ActionEditUser:         true,
	ActionGrantAdmin:       true,
	ActionRequestAccess:    true,
	ActionViewAnnouncement: true,
}

// IsValidAction проверяет, входит ли действие в закрытое перечисление.
func IsValidAction(action string) bool {
	return validActions[action]
}

// UserLog — одна неизменяемая запись аудита.
// Строки никогда не обновляются и не удаляются; журнал — единственный
// источник для вычисления последней активности пользователя.
type UserLog struct {
	// ID — UUID записи
	ID string `json:"id"`
	// UserID — UUID действующего пользователя
	UserID string `json:"user_id"`
	// Action — действие из закрытого перечисления
	Action string `json:"action"`
	// Details — типизированный JSON-payload действия
	Details json.RawMessage `json:"details,omitempty"`
	// IPAddress — IP источника запроса
	IPAddress string `json:"ip_address"`
	// UserAgent — User-Agent источника запроса
	UserAgent string `json:"user_agent"`
	// CreatedAt — время записи
	CreatedAt time.Time `json:"created_at"`

	// User — действующий пользователь (заполняется join-запросом)
	User *User `json:"users,omitempty"`
}

// --- Типизированные payload'ы для Details ---
// По одному типу на действие вместо произвольного JSON-блоба:
// call sites не могут разойтись по форме данных.

// LoginDetails — payload действий login и register.
type LoginDetails struct {
	Name string `json:"name"`
}

// RequestAccessDetails — payload действия request_access.
type RequestAccessDetails struct {
	RequestID string `json:"request_id"`
	BranchID  string `json:"branch_id"`
	ShopName  string `json:"shop_name"`
}

// ApproveRequestDetails — payload действия approve_request.
type ApproveRequestDetails struct {
	RequestID     string   `json:"request_id"`
	TargetUserID  string   `json:"target_user_id"`
	PriceGroupIDs []string `json:"price_group_ids"`
}

// RejectRequestDetails — payload действия reject_request.
type RejectRequestDetails struct {
	RequestID    string  `json:"request_id"`
	TargetUserID string  `json:"target_user_id"`
	Reason       *string `json:"reason"`
}

// GroupDetails — payload действий create_group, edit_group, delete_group.
type GroupDetails struct {
	GroupID     string  `json:"group_id"`
	GroupName   string  `json:"group_name"`
	Description *string `json:"description,omitempty"`
}

// UploadImageDetails — payload действия upload_image.
type UploadImageDetails struct {
	GroupID    string `json:"group_id,omitempty"`
	GroupName  string `json:"group_name,omitempty"`
	Folder     string `json:"folder,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	ImageCount int    `json:"image_count,omitempty"`
}

// EditUserDetails — payload действия edit_user.
type EditUserDetails struct {
	TargetUserID  string   `json:"target_user_id"`
	UpdatedFields []string `json:"updated_fields"`
}

// GrantAdminDetails — payload действия grant_admin.
type GrantAdminDetails struct {
	TargetUserID string `json:"target_user_id"`
	IsAdmin      *bool  `json:"is_admin,omitempty"`
	IsOperator   *bool  `json:"is_operator,omitempty"`
}

// ViewDetails — payload действий view_price и view_announcement.
type ViewDetails struct {
	TargetID string `json:"target_id"`
	Title    string `json:"title,omitempty"`
}
