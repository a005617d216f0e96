package commander

import (
	"context"
	"fmt"
)

//go:generate mockery --name RabbitMQPublisher --filename rabbitmqpublisher.go

// RabbitMQPublisher is RabbitMQ messages publisher.
type RabbitMQPublisher interface {
	Publish(context.Context, string, []byte) error
}

// RabbitMQSender sends publish commands to a single routing key.
type RabbitMQSender struct {
	publisher  RabbitMQPublisher
	routingKey string
}

// NewRabbitMQSender returns new RabbitMQSender publishing to routingKey.
// The publisher consumes the queue bound to it, see RABBITMQ_QUEUE.
func NewRabbitMQSender(publisher RabbitMQPublisher, routingKey string) RabbitMQSender {
	return RabbitMQSender{
		publisher:  publisher,
		routingKey: routingKey,
	}
}

// Send sends message to RabbitMQSender's routing key.
func (s RabbitMQSender) Send(ctx context.Context, msg []byte) error {
	if err := s.publisher.Publish(ctx, s.routingKey, msg); err != nil {
		return fmt.Errorf("can't publish command: %w", err)
	}

	return nil
}
