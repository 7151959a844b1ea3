package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerMessage_HandleMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	amqpURI := brokerURI(ctx, t)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	queueName := "consumer-test"
	_, err = ch.QueueDeclare(
		queueName,
		false, false, false, false, nil,
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]string, 0)
	var mu sync.Mutex

	handler := func(_ context.Context, body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		wg.Done()
		return nil
	}

	_, err = ConsumerMessage(ctx, ch, queueName, handler, newNoopLogger())
	require.NoError(t, err)

	for _, msg := range []string{"hello", "world"} {
		err := ch.Publish(
			"", queueName, false, false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        []byte(msg),
			},
		)
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for messages to be processed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"hello", "world"}, received)
}

func TestConsumerMessage_HandlerErrorTriggersNack(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	amqpURI := brokerURI(ctx, t)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	queueName := "nack-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	// первая попытка падает, повторная доставка подтверждается
	var attempts int
	var mu sync.Mutex
	redelivered := make(chan struct{})
	handler := func(_ context.Context, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return fmt.Errorf("fail")
		}
		close(redelivered)
		return nil
	}

	_, err = ConsumerMessage(ctx, ch, queueName, handler, newNoopLogger())
	require.NoError(t, err)

	err = ch.Publish("", queueName, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte("bad"),
	})
	require.NoError(t, err)

	select {
	case <-redelivered:
	case <-time.After(10 * time.Second):
		t.Fatal("Did not receive requeued message after Nack")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

type ackRecorder struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, _ bool) error {
	return a.Nack(tag, false, false)
}

func TestConsumer_WaitDrainsHandlersAfterCancel(t *testing.T) {
	acks := &ackRecorder{}
	started := make(chan struct{})
	release := make(chan struct{})

	var handlerCtxErr error
	handler := func(ctx context.Context, _ []byte) error {
		close(started)
		<-release
		handlerCtxErr = ctx.Err()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp.Delivery, 1)
	c := newConsumer("drain-test", handler, newNoopLogger())
	go c.consume(ctx, deliveries)

	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 7, Body: []byte("job")}
	<-started
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, c.Wait(waitCtx), context.DeadlineExceeded, "обработчик ещё выполняется")

	close(release)
	require.NoError(t, c.Wait(context.Background()))

	assert.NoError(t, handlerCtxErr, "отмена чтения не должна отменять обработчик")
	acks.mu.Lock()
	defer acks.mu.Unlock()
	assert.Equal(t, []uint64{7}, acks.acked)
	assert.Empty(t, acks.nacked)
}

func TestConsumer_HandlerErrorNacks(t *testing.T) {
	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 2)
	c := newConsumer("nack-unit", func(_ context.Context, body []byte) error {
		if string(body) == "bad" {
			return fmt.Errorf("fail")
		}
		return nil
	}, newNoopLogger())

	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: []byte("bad")}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("good")}
	close(deliveries)

	c.consume(context.Background(), deliveries)
	require.NoError(t, c.Wait(context.Background()))

	acks.mu.Lock()
	defer acks.mu.Unlock()
	assert.Equal(t, []uint64{1}, acks.nacked)
	assert.Equal(t, []uint64{2}, acks.acked)
}
