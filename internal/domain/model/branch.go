package model

import "time"

// Branch — филиал приёмного пункта. Справочная сущность.
type Branch struct {
	// ID — UUID филиала
	ID string `json:"id"`
	// Name — название филиала
	Name string `json:"name"`
	// Code — короткий код филиала
	Code string `json:"code"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
}
