package models

import "encoding/json"

// Структуры ниже принимают данные из JSON-запросов до конвертации в доменные модели.
// Даты приходят строками YYYY-MM-DD и разбираются в сервисах, количество
// приходит как json.Number, дробные значения отклоняются.

// LoginRequest: тестовый вход по LINE ID и имени.
type LoginRequest struct {
	ExternalLoginID string `json:"externalLoginId" validate:"required,max=50"`
	DisplayName     string `json:"displayName" validate:"required,max=100"`
}

// CallbackRequest: параметры возврата из LINE Login.
type CallbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required,min=8,max=128"`
}

// HarvestSubmit: новая заявка на сбор урожая.
type HarvestSubmit struct {
	VegetableItem string      `json:"vegetable_item" validate:"required,max=50"`
	DeliveryDate  string      `json:"delivery_date" validate:"required"`
	Quantity      json.Number `json:"quantity" validate:"required"`
	Notes         *string     `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// HarvestPatch: частичное изменение заявки на сбор урожая.
// Поля Status и Notes учитываются только для администратора.
type HarvestPatch struct {
	VegetableItem *string      `json:"vegetable_item,omitempty" validate:"omitempty,max=50"`
	DeliveryDate  *string      `json:"delivery_date,omitempty"`
	Quantity      *json.Number `json:"quantity,omitempty"`
	Notes         *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	Status        *Status      `json:"status,omitempty"`
}

// RentalSubmit: новая заявка на аренду контейнеров.
type RentalSubmit struct {
	PickupDate string      `json:"pickup_date" validate:"required"`
	ReturnDate string      `json:"return_date" validate:"required"`
	Quantity   json.Number `json:"quantity" validate:"required"`
	Notes      *string     `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// RentalPatch: частичное изменение заявки на аренду.
type RentalPatch struct {
	PickupDate *string      `json:"pickup_date,omitempty"`
	ReturnDate *string      `json:"return_date,omitempty"`
	Quantity   *json.Number `json:"quantity,omitempty"`
	Notes      *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	Status     *Status      `json:"status,omitempty"`
}

// StatusRequest: смена статуса заявки администратором.
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=approved rejected completed"`
}

// AnnouncementRequest: создание объявления с опциональной рассылкой в LINE.
type AnnouncementRequest struct {
	Title      string  `json:"title" validate:"required,max=100"`
	Message    string  `json:"message" validate:"required,max=1000"`
	Recipients string  `json:"recipients" validate:"omitempty,oneof=all selected"`
	UserIDs    []int64 `json:"user_ids,omitempty"`
	SendLine   bool    `json:"send_line"`
}

// ReminderRequest: ручной запуск напоминания.
type ReminderRequest struct {
	Type          string `json:"type" validate:"required,oneof=harvest oricon custom"`
	TargetDate    string `json:"target_date" validate:"required"`
	CustomMessage string `json:"custom_message,omitempty" validate:"omitempty,max=1000"`
}

// UserCreate: создание пользователя администратором.
type UserCreate struct {
	LineID      string `json:"line_id" validate:"required,max=50"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Role        Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// UserPatch: изменение профиля. Role и Status может менять только администратор.
type UserPatch struct {
	DisplayName *string     `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Role        *Role       `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
	Status      *UserStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive blocked"`
}

// VegetableRequest: создание или переименование позиции справочника.
type VegetableRequest struct {
	ItemName string `json:"item_name" validate:"required,max=50"`
}
