package rabbitmq

// Топология брокера.
const (
	Exchange           = "notifications"
	ReminderQueue      = "notification.reminder"
	ReminderRoutingKey = "reminder"

	// prefetch ограничивает число неподтверждённых сообщений на канал.
	prefetch = 10
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ReminderQueues возвращает очереди воркера напоминаний.
func ReminderQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ReminderQueue, RoutingKey: ReminderRoutingKey},
	}
}
