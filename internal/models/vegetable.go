package models

import "time"

// Vegetable: позиция справочника овощей, доступных для заявок.
type Vegetable struct {
	ID        int64      `json:"id"`
	ItemName  string     `json:"item_name"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
