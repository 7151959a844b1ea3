// Package models содержит доменные структуры системы учёта заявок на сбор урожая
// и аренду контейнеров (オリコン): пользователи, справочник овощей, заявки,
// уведомления, а также DTO входящих HTTP-запросов с тегами валидации.
package models

import "time"

// Role: роль пользователя.
type Role string

const (
	// RoleUser: обычный участник кооператива.
	RoleUser Role = "user"
	// RoleAdmin: администратор.
	RoleAdmin Role = "admin"
)

// UserStatus: статус учётной записи.
type UserStatus string

const (
	// UserActive: активный пользователь.
	UserActive UserStatus = "active"
	// UserInactive: отключён администратором.
	UserInactive UserStatus = "inactive"
	// UserBlocked: пользователь заблокировал бота в LINE.
	UserBlocked UserStatus = "blocked"
)

// Valid сообщает, что статус входит в допустимый набор.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserInactive, UserBlocked:
		return true
	}
	return false
}

// User представляет участника системы, идентифицируемого по LINE ID.
type User struct {
	ID          int64      `json:"id"`
	LineID      string     `json:"line_id"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
}

// IsActive сообщает, что пользователь может работать с системой.
func (u User) IsActive() bool {
	return u.Status == UserActive
}

// Caller: проверенная личность вызывающего, восстановленная из токена.
type Caller struct {
	UserID      int64
	LineID      string
	DisplayName string
	Role        Role
	Status      UserStatus
}

// IsAdmin сообщает, что вызывающий является администратором.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
