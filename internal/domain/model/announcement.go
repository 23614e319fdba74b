package model

import "time"

// MaxAnnouncementImages — максимум изображений на одно объявление.
const MaxAnnouncementImages = 5

// Announcement — опубликованное объявление с 0..5 упорядоченными изображениями.
type Announcement struct {
	// ID — UUID объявления
	ID string `json:"id"`
	// Title — заголовок
	Title string `json:"title"`
	// Body — текст объявления (опционально)
	Body *string `json:"body,omitempty"`
	// ImagePath — путь первого изображения (для превью, опционально)
	ImagePath *string `json:"image_path,omitempty"`
	// IsPublished — флаг публикации, переключается независимо от контента
	IsPublished bool `json:"is_published"`
	// CreatedBy — UUID автора (опционально)
	CreatedBy *string `json:"created_by,omitempty"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time `json:"updated_at"`

	// Images — упорядоченные изображения (заполняется join-запросом)
	Images []*AnnouncementImage `json:"images,omitempty"`
}

// AnnouncementImage — одно изображение объявления.
type AnnouncementImage struct {
	// ID — UUID изображения
	ID string `json:"id"`
	// AnnouncementID — UUID объявления-владельца
	AnnouncementID string `json:"announcement_id"`
	// ImagePath — относительный путь в хранилище
	ImagePath string `json:"image_path"`
	// SortOrder — позиция в карусели (0..4)
	SortOrder int `json:"sort_order"`
	// CreatedAt — время добавления
	CreatedAt time.Time `json:"created_at"`
}
