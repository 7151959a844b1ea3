package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
)

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, body []byte) error

// Consumer читает очередь и отслеживает запущенные обработчики.
type Consumer struct {
	queue    string
	handler  Handler
	log      *slog.Logger
	sem      chan struct{}
	inflight sync.WaitGroup
	stopped  chan struct{}
}

// ConsumerMessage создает потребителя сообщений из очереди RabbitMQ.
// Не более prefetch сообщений обрабатываются одновременно.
//
// Отмена ctx останавливает чтение новых сообщений, но не прерывает уже
// запущенные обработчики: до закрытия канала нужно дождаться их через Wait.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler Handler, log *slog.Logger) (*Consumer, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := newConsumer(queueName, handler, log)
	go c.consume(ctx, delivery)
	return c, nil
}

func newConsumer(queueName string, handler Handler, log *slog.Logger) *Consumer {
	return &Consumer{
		queue:   queueName,
		handler: handler,
		log:     log,
		sem:     make(chan struct{}, prefetch),
		stopped: make(chan struct{}),
	}
}

func (c *Consumer) consume(ctx context.Context, delivery <-chan amqp.Delivery) {
	defer close(c.stopped)

	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				c.log.Info("delivery channel closed", slog.String("queue", c.queue))
				return
			}
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				// сообщение не подтверждено и вернётся в очередь при закрытии канала
				return
			}
			c.inflight.Add(1)
			go func(d amqp.Delivery) {
				defer c.inflight.Done()
				defer func() { <-c.sem }()
				c.handle(handlerCtx, d)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	if err := c.handler(ctx, d.Body); err != nil {
		c.log.Warn("message handler failed, requeue", slog.String("queue", c.queue), sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		c.log.Error("failed to ack message", sl.Err(ackErr))
	}
}

// Wait ждёт остановки чтения и завершения всех запущенных обработчиков.
// Возвращает ошибку ctx, если обработчики не успели завершиться.
func (c *Consumer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-c.stopped
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
