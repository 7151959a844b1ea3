package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ в формате JSON.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReminderPublisher публикует задания напоминаний в очередь воркера.
// Канал amqp не потокобезопасен: один издатель на горутину.
type ReminderPublisher struct {
	ch *amqp.Channel
}

// NewReminderPublisher создает издателя поверх настроенного канала.
func NewReminderPublisher(ch *amqp.Channel) *ReminderPublisher {
	return &ReminderPublisher{ch: ch}
}

// PublishReminder отправляет задание в обменник Exchange с ключом ReminderRoutingKey.
func (p *ReminderPublisher) PublishReminder(ctx context.Context, job models.ReminderJob) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq.PublishReminder: %w", err)
	}
	return PublishMessage(p.ch, Exchange, ReminderRoutingKey, job)
}
