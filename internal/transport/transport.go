// Package transport is the data-plane view of the broker used to move
// messages between queues.
package transport

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrInactive is returned by Stream.Next once no delivery arrived within the
// inactivity window. A stream that returned it is exhausted.
var ErrInactive = errors.New("no delivery within inactivity window")

// ErrNacked is returned by Publish when the broker negatively confirms a message.
var ErrNacked = errors.New("publish not confirmed by broker")

// Delivery is one message taken from a source queue under manual ack.
type Delivery struct {
	Tag         uint64
	Redelivered bool
	Message     amqp.Publishing
}

// Stream is a finite, non-restartable sequence of deliveries.
type Stream interface {
	// Next blocks until a delivery arrives, the inactivity window elapses
	// (ErrInactive) or ctx is done.
	Next(ctx context.Context) (Delivery, error)
	Close() error
}

// Session is one broker connection with a single channel.
type Session interface {
	// DeclarePassive checks that queue exists and returns its ready count.
	DeclarePassive(queue string) (int, error)
	// Confirm puts the channel in publisher confirm mode.
	Confirm() error
	// Consume starts a manual-ack consumer on queue.
	Consume(queue string, inactivity time.Duration) (Stream, error)
	// Publish sends msg to the default exchange. In confirm mode it returns
	// only after the broker confirmed the message.
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
	Ack(tag uint64) error
	Nack(tag uint64, requeue bool) error
	Close() error
}

// Dialer opens sessions on a virtual host.
type Dialer interface {
	Dial(ctx context.Context, vhost string) (Session, error)
}

// PublishingFrom copies the properties and body of d into a Publishing.
func PublishingFrom(d amqp.Delivery) amqp.Publishing {
	return amqp.Publishing{
		Headers:         d.Headers,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		DeliveryMode:    d.DeliveryMode,
		Priority:        d.Priority,
		CorrelationId:   d.CorrelationId,
		ReplyTo:         d.ReplyTo,
		Expiration:      d.Expiration,
		MessageId:       d.MessageId,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		UserId:          d.UserId,
		AppId:           d.AppId,
		Body:            d.Body,
	}
}
