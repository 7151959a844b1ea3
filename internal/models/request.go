package models

import (
	"time"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
)

// Status: статус заявки на сбор урожая или аренду.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// Valid сообщает, что статус входит в допустимый набор.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// Kind различает виды заявок.
type Kind string

const (
	// KindHarvest: заявка на сбор урожая.
	KindHarvest Kind = "harvest"
	// KindRental: заявка на аренду контейнеров.
	KindRental Kind = "oricon"
)

// HarvestRequest: заявка пользователя на сбор овоща в указанный день.
type HarvestRequest struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	VegetableItem string    `json:"vegetable_item"`
	DeliveryDate  day.Date  `json:"delivery_date"`
	Quantity      int       `json:"quantity"`
	Status        Status    `json:"status"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RentalRequest: заявка на аренду контейнеров между датами выдачи и возврата.
type RentalRequest struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	PickupDate day.Date  `json:"pickup_date"`
	ReturnDate day.Date  `json:"return_date"`
	Quantity   int       `json:"quantity"`
	Status     Status    `json:"status"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListFilter: фильтры и пагинация списка заявок.
// UserID == nil означает «все пользователи» и допустимо только для администратора.
type ListFilter struct {
	UserID *int64
	From   *day.Date
	To     *day.Date
	Status *Status
	Limit  int
	Offset int
}

// Page: страница результатов вместе с общим количеством.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
