package transport

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAMQPDialer_URI(t *testing.T) {
	d := &AMQPDialer{Host: "rabbit", Port: 5673, Username: "migrator", Password: "s3cret"}

	uri, err := amqp.ParseURI(d.URI("orders"))
	require.NoError(t, err)
	assert.Equal(t, "amqp", uri.Scheme)
	assert.Equal(t, "rabbit", uri.Host)
	assert.Equal(t, 5673, uri.Port)
	assert.Equal(t, "migrator", uri.Username)
	assert.Equal(t, "s3cret", uri.Password)
	assert.Equal(t, "orders", uri.Vhost)

	d.TLS = true
	uri, err = amqp.ParseURI(d.URI("orders"))
	require.NoError(t, err)
	assert.Equal(t, "amqps", uri.Scheme)
}

func TestAMQPDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &AMQPDialer{Host: "127.0.0.1", Port: 1}
	_, err := d.Dial(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAMQPStream_InactivityEndsStream(t *testing.T) {
	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{DeliveryTag: 7, Body: []byte("first"), ContentType: "text/plain"}
	s := &amqpStream{tag: "t", msgs: msgs, inactivity: 20 * time.Millisecond}

	d, err := s.Next(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), d.Tag)
	assert.Equal(t, "first", string(d.Message.Body))
	assert.Equal(t, "text/plain", d.Message.ContentType)

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrInactive)

	// exhausted streams stay exhausted even if something shows up later
	msgs <- amqp.Delivery{DeliveryTag: 8}
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrInactive)
}

func TestAMQPStream_ClosedChannel(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	close(msgs)
	s := &amqpStream{tag: "t", msgs: msgs, inactivity: time.Second}

	_, err := s.Next(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInactive)
}

func TestAMQPStream_ContextDone(t *testing.T) {
	s := &amqpStream{tag: "t", msgs: make(chan amqp.Delivery), inactivity: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishingFrom(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	d := amqp.Delivery{
		Headers:       amqp.Table{"k": "v"},
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Priority:      3,
		CorrelationId: "c",
		MessageId:     "m",
		Timestamp:     ts,
		Body:          []byte(`{}`),
	}
	p := PublishingFrom(d)
	assert.Equal(t, amqp.Table{"k": "v"}, p.Headers)
	assert.Equal(t, amqp.Persistent, p.DeliveryMode)
	assert.Equal(t, uint8(3), p.Priority)
	assert.Equal(t, ts, p.Timestamp)
	assert.Equal(t, []byte(`{}`), p.Body)
}
