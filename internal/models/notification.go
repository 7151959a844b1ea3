package models

import "time"

// Селекторы получателей уведомления.
const (
	RecipientsAll      = "all"
	RecipientsSelected = "selected"
)

// Notification: объявление или напоминание, отправленное администратором.
// После отправки не изменяется, допускается только мягкое удаление.
type Notification struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Recipients       string     `json:"recipients"`
	RecipientUserIDs []int64    `json:"recipient_user_ids,omitempty"`
	SentAt           time.Time  `json:"sent_at"`
	SentCount        int        `json:"sent_count"`
	FailedCount      int        `json:"failed_count"`
	TotalCount       int        `json:"total_count"`
	CreatedBy        *int64     `json:"created_by,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// DeliveryResult: результат отправки сообщения одному получателю.
type DeliveryResult struct {
	LineID     string `json:"line_id"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DeliveryStats: агрегированные счётчики массовой рассылки.
type DeliveryStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Stats сворачивает результаты рассылки в счётчики.
func Stats(results []DeliveryResult) DeliveryStats {
	st := DeliveryStats{Total: len(results)}
	for _, r := range results {
		if r.Success {
			st.Sent++
		} else {
			st.Failed++
		}
	}
	return st
}

// Типы напоминаний.
const (
	ReminderHarvest = "harvest"
	ReminderOricon  = "oricon"
	ReminderCustom  = "custom"
)

// ReminderJob: задание на рассылку напоминания, передаваемое через RabbitMQ.
type ReminderJob struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	TargetDate    string `json:"target_date"`
	CustomMessage string `json:"custom_message,omitempty"`
	RequestedBy   *int64 `json:"requested_by,omitempty"`
}
