package models

import "time"

// DashboardSummary: сводка для панели администратора.
type DashboardSummary struct {
	Summary        SummaryCounts   `json:"summary"`
	RecentActivity RecentActivity  `json:"recent_activity"`
	TodaySchedule  TodaySchedule   `json:"today_schedule"`
	VegetableStats []VegetableStat `json:"vegetable_stats"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// SummaryCounts: счётчики по сущностям.
type SummaryCounts struct {
	Users         UserCounts    `json:"users"`
	Harvest       RequestCounts `json:"harvest"`
	Oricon        RequestCounts `json:"oricon"`
	Vegetables    int           `json:"vegetables"`
	Notifications int           `json:"notifications"`
}

// UserCounts: пользователи по статусам и ролям.
type UserCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Blocked  int `json:"blocked"`
	Admins   int `json:"admins"`
}

// RequestCounts: заявки по статусам (удалённые не учитываются).
type RequestCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
}

// RecentActivity: новые записи за последние 7 дней.
type RecentActivity struct {
	NewUsers           int `json:"new_users"`
	NewHarvestRequests int `json:"new_harvest_requests"`
	NewOriconRentals   int `json:"new_oricon_rentals"`
}

// TodaySchedule: запланированные на сегодня сборы и выдачи.
type TodaySchedule struct {
	Harvests []ScheduleItem `json:"harvests"`
	Pickups  []ScheduleItem `json:"pickups"`
}

// ScheduleItem: строка расписания.
type ScheduleItem struct {
	ID            int64  `json:"id"`
	UserName      string `json:"user_name"`
	VegetableItem string `json:"vegetable_item,omitempty"`
	Quantity      int    `json:"quantity"`
	Status        Status `json:"status"`
}

// VegetableStat: статистика заявок по овощу.
type VegetableStat struct {
	ItemName      string `json:"item_name"`
	RequestCount  int    `json:"request_count"`
	TotalQuantity int    `json:"total_quantity"`
}
