package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const defaultConnectTimeout = 30 * time.Second

// AMQPDialer dials RabbitMQ over AMQP 0-9-1.
type AMQPDialer struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool

	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// URI returns the connection URI for vhost.
func (d *AMQPDialer) URI(vhost string) string {
	scheme := "amqp"
	if d.TLS {
		scheme = "amqps"
	}
	return amqp.URI{
		Scheme:   scheme,
		Host:     d.Host,
		Port:     d.Port,
		Username: d.Username,
		Password: d.Password,
		Vhost:    vhost,
	}.String()
}

func (d *AMQPDialer) Dial(ctx context.Context, vhost string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName("qhop")
	cfg := amqp.Config{
		Vhost:      vhost,
		Properties: props,
		Dial:       amqp.DefaultDial(timeout),
	}
	if d.TLS {
		cfg.TLSClientConfig = &tls.Config{ServerName: d.Host}
	}

	conn, err := amqp.DialConfig(d.URI(vhost), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d vhost %q: %w", d.Host, d.Port, vhost, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	d.Logger.Debug().Str("vhost", vhost).Str("host", d.Host).Msg("AMQP session opened")
	return &amqpSession{conn: conn, ch: ch, logger: d.Logger}, nil
}

type amqpSession struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms bool
	logger   zerolog.Logger
}

func (s *amqpSession) DeclarePassive(queue string) (int, error) {
	q, err := s.ch.QueueDeclarePassive(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return 0, fmt.Errorf("queue %q does not exist: %w", queue, err)
	}
	return q.Messages, nil
}

func (s *amqpSession) Confirm() error {
	if err := s.ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	s.confirms = true
	return nil
}

func (s *amqpSession) Consume(queue string, inactivity time.Duration) (Stream, error) {
	tag := "qhop-" + uuid.NewString()
	msgs, err := s.ch.Consume(
		queue,
		tag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %q: %w", queue, err)
	}
	return &amqpStream{ch: s.ch, tag: tag, msgs: msgs, inactivity: inactivity}, nil
}

func (s *amqpSession) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if !s.confirms {
		return s.ch.PublishWithContext(ctx, "", routingKey, false, false, msg)
	}
	dc, err := s.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",         // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return err
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNacked
	}
	return nil
}

func (s *amqpSession) Ack(tag uint64) error {
	return s.ch.Ack(tag, false)
}

func (s *amqpSession) Nack(tag uint64, requeue bool) error {
	return s.ch.Nack(tag, false, requeue)
}

func (s *amqpSession) Close() error {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn.Close()
	}
	return nil
}

type amqpStream struct {
	ch         *amqp.Channel
	tag        string
	msgs       <-chan amqp.Delivery
	inactivity time.Duration
	done       bool
}

func (s *amqpStream) Next(ctx context.Context) (Delivery, error) {
	if s.done {
		return Delivery{}, ErrInactive
	}
	timer := time.NewTimer(s.inactivity)
	defer timer.Stop()

	select {
	case d, ok := <-s.msgs:
		if !ok {
			s.done = true
			return Delivery{}, fmt.Errorf("consumer %s closed by broker", s.tag)
		}
		return Delivery{Tag: d.DeliveryTag, Redelivered: d.Redelivered, Message: PublishingFrom(d)}, nil
	case <-timer.C:
		s.done = true
		return Delivery{}, ErrInactive
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

func (s *amqpStream) Close() error {
	s.done = true
	return s.ch.Cancel(s.tag, false)
}
