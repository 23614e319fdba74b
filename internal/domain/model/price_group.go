package model

import "time"

// PriceGroup — именованный прайс-лист из изображений, привязанный к филиалу.
type PriceGroup struct {
	// ID — UUID группы
	ID string `json:"id"`
	// Name — название группы
	Name string `json:"name"`
	// Description — описание (опционально)
	Description *string `json:"description,omitempty"`
	// BranchID — UUID филиала (опционально)
	BranchID *string `json:"branch_id,omitempty"`
	// TelegramChatID — chat_id для пересылки новых прайсов в Telegram (опционально)
	TelegramChatID *string `json:"telegram_chat_id,omitempty"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`

	// LastUpdatedAt — производное поле: created_at последнего изображения группы.
	// Не хранится в БД.
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
}

// PriceGroupImage — одно загруженное изображение прайса.
// Набор изображений группы заменяется целиком, без поштучного редактирования.
type PriceGroupImage struct {
	// ID — UUID изображения
	ID string `json:"id"`
	// PriceGroupID — UUID группы-владельца
	PriceGroupID string `json:"price_group_id"`
	// FilePath — относительный путь в хранилище (folder/name.ext)
	FilePath string `json:"file_path"`
	// FileName — оригинальное имя файла (опционально)
	FileName *string `json:"file_name,omitempty"`
	// Title — подпись изображения (опционально)
	Title *string `json:"title,omitempty"`
	// UploadedBy — UUID загрузившего (опционально)
	UploadedBy *string `json:"uploaded_by,omitempty"`
	// CreatedAt — время загрузки
	CreatedAt time.Time `json:"created_at"`
}

// UserGroupAccess — выданный пользователю доступ к прайс-группе.
// Уникален по паре (user_id, price_group_id).
type UserGroupAccess struct {
	// ID — UUID записи доступа
	ID string `json:"id"`
	// UserID — UUID пользователя
	UserID string `json:"user_id"`
	// PriceGroupID — UUID прайс-группы
	PriceGroupID string `json:"price_group_id"`
	// GrantedBy — UUID выдавшего доступ (опционально)
	GrantedBy *string `json:"granted_by,omitempty"`
	// CreatedAt — время выдачи
	CreatedAt time.Time `json:"created_at"`

	// PriceGroup — прайс-группа (заполняется join-запросом)
	PriceGroup *PriceGroup `json:"price_group,omitempty"`
	// LastUpdatedAt — производное поле: время последнего изображения группы
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
}
