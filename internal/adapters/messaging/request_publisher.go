package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blood-link/request-matching-service/internal/core/ports"
	amqp "github.com/rabbitmq/amqp091-go"
)

var _ ports.RequestEventPublisher = (*RabbitMQBroker)(nil)

const (
	typeRequestCreated   = "request.created"
	typeRequestFulfilled = "request.fulfilled"
	typeRequestsExpired  = "request.expired"
)

func (rmq *RabbitMQBroker) PublishRequestCreated(ctx context.Context, evt ports.RequestCreatedEvent) error {
	return rmq.publish(ctx, typeRequestCreated, evt)
}

func (rmq *RabbitMQBroker) PublishRequestFulfilled(ctx context.Context, evt ports.RequestFulfilledEvent) error {
	return rmq.publish(ctx, typeRequestFulfilled, evt)
}

func (rmq *RabbitMQBroker) PublishRequestsExpired(ctx context.Context, evt ports.RequestsExpiredEvent) error {
	return rmq.publish(ctx, typeRequestsExpired, evt)
}

func (rmq *RabbitMQBroker) publish(ctx context.Context, eventType string, evt any) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	// Circuit breaker protects against a wedged broker connection.
	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Type:         eventType,
				DeliveryMode: amqp.Persistent,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}
