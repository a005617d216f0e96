package rabbitmq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc is function which handles messages.
type HandlerFunc func(ctx context.Context, message []byte) error

// RabbitMQ consumes and publishes amqp messages on a single channel.
type RabbitMQ struct {
	channel   *amqp.Channel
	exchange  string
	prefetch  int
	isRunning chan struct{}
}

// Option is custom configuration of RabbitMQ.
type Option func(mq *RabbitMQ)

// WithPrefetch sets number of unacknowledged deliveries the consumer may hold.
func WithPrefetch(count int) Option {
	return func(mq *RabbitMQ) {
		mq.prefetch = count
	}
}

// NewRabbitMQ returns new RabbitMQ.
func NewRabbitMQ(connection *amqp.Connection, exchange string, ops ...Option) (*RabbitMQ, error) {
	channel, err := connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("can't open channel: %w", err)
	}
	mq := RabbitMQ{
		channel:  channel,
		exchange: exchange,
		prefetch: 1,
	}

	for _, op := range ops {
		op(&mq)
	}

	return &mq, nil
}

// DeclareQueue declares durable direct exchange and queue and binds the queue to routingKey.
func (mq *RabbitMQ) DeclareQueue(queue, routingKey string) error {
	if err := mq.channel.ExchangeDeclare(mq.exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("can't declare exchange %q: %w", mq.exchange, err)
	}

	if _, err := mq.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("can't declare queue %q: %w", queue, err)
	}

	if err := mq.channel.QueueBind(queue, routingKey, mq.exchange, false, nil); err != nil {
		return fmt.Errorf("can't bind queue %q: %w", queue, err)
	}

	return nil
}

// Publish publishes persistent message to routing key.
func (mq *RabbitMQ) Publish(ctx context.Context, routingKey string, message []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         message,
	}

	return mq.channel.PublishWithContext(
		ctx,
		mq.exchange,
		routingKey,
		false,
		false,
		msg,
	)
}

// Consume consumes messages from queue and passes deliveries to provided handler function.
// Messages are acked when handler succeeds and dropped when it fails.
// It returns channel with errors from handler function and consuming process.
// Function works asynchronously, it consumes messages in background as long as context is not closed.
func (mq *RabbitMQ) Consume(ctx context.Context, queue string, handler HandlerFunc) (<-chan error, error) {
	consumerID, err := uuid.NewUUID()
	if err != nil {
		return nil, fmt.Errorf("can't create consumer ID: %w", err)
	}

	if err := mq.channel.Qos(mq.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("can't set prefetch count: %w", err)
	}

	deliveries, err := mq.channel.Consume(
		queue,
		consumerID.String(),
		false, // auto acknowledge
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("can't start consuming: %w", err)
	}

	consumingErrors := make(chan error)
	mq.isRunning = make(chan struct{})
	go func() {
		defer close(mq.isRunning)
		defer close(consumingErrors)
		mq.consumeMessages(ctx, deliveries, consumingErrors, handler)
	}()

	return consumingErrors, nil
}

func (mq *RabbitMQ) consumeMessages(
	ctx context.Context,
	deliveries <-chan amqp.Delivery,
	consumingErrors chan error,
	handler HandlerFunc,
) {
	for {
		var (
			delivery amqp.Delivery
			ok       bool
		)
		select {
		case <-ctx.Done():
			return
		case delivery, ok = <-deliveries:
			if !ok {
				return
			}
		}

		if err := handler(ctx, delivery.Body); err != nil {
			_ = pushError(ctx, err, consumingErrors)
			if err := settle(ctx, delivery.Nack(false, false), "nack", consumingErrors); err != nil {
				return
			}
			continue
		}

		if err := settle(ctx, delivery.Ack(false), "ack", consumingErrors); err != nil {
			return
		}
	}
}

// settle reports ack or nack failure and returns error only when ctx is done.
func settle(ctx context.Context, err error, action string, consumingErrors chan error) error {
	if err == nil {
		return nil
	}

	return pushError(ctx, fmt.Errorf("can't %s message: %w", action, err), consumingErrors)
}

// Done returns channel which will be closed when consuming will be finished.
func (mq *RabbitMQ) Done() chan struct{} {
	return mq.isRunning
}

// Close closes the channel.
func (mq *RabbitMQ) Close() error {
	return mq.channel.Close()
}

func pushError(ctx context.Context, err error, errChan chan error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case errChan <- err:
	}
	return nil
}
