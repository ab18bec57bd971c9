package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ottermq/qhop/internal/transport"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublishFailed is returned by fake sessions for injected publish failures.
var ErrPublishFailed = errors.New("injected publish failure")

// Dialer returns a transport.Dialer backed by b.
func (b *Broker) Dialer() transport.Dialer {
	return fakeDialer{b: b}
}

type fakeDialer struct {
	b *Broker
}

func (d fakeDialer) Dial(ctx context.Context, vhost string) (transport.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	d.b.dials++
	d.b.openSessions++
	return &fakeSession{b: d.b, vhost: vhost, unacked: make(map[uint64]pending)}, nil
}

type pending struct {
	queue string
	msg   amqp.Publishing
}

type fakeSession struct {
	b       *Broker
	vhost   string
	nextTag uint64
	unacked map[uint64]pending
	closed  bool
}

func (s *fakeSession) DeclarePassive(queue string) (int, error) {
	q, ok := s.b.Queue(s.vhost, queue)
	if !ok {
		return 0, fmt.Errorf("NOT_FOUND - no queue '%s' in vhost '%s'", queue, s.vhost)
	}
	return q.MessagesReady, nil
}

func (s *fakeSession) Confirm() error { return nil }

// Consume returns a stream that ends as soon as the queue has no ready
// message; the inactivity window is not waited for.
func (s *fakeSession) Consume(queue string, _ time.Duration) (transport.Stream, error) {
	if _, ok := s.b.Queue(s.vhost, queue); !ok {
		return nil, fmt.Errorf("NOT_FOUND - no queue '%s' in vhost '%s'", queue, s.vhost)
	}
	return &fakeStream{s: s, queue: queue}, nil
}

func (s *fakeSession) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.publishFailures[routingKey]; ok {
		if n <= 0 {
			return ErrPublishFailed
		}
		b.publishFailures[routingKey] = n - 1
	}
	if n := b.dropped[routingKey]; n > 0 {
		b.dropped[routingKey] = n - 1
		return nil
	}
	// unroutable messages are dropped, as with the default exchange
	if q, ok := b.vhost(s.vhost).queues[routingKey]; ok {
		q.messages = append(q.messages, msg)
	}
	return nil
}

func (s *fakeSession) Ack(tag uint64) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	p, ok := s.unacked[tag]
	if !ok {
		return fmt.Errorf("unknown delivery tag %d", tag)
	}
	delete(s.unacked, tag)
	if q, ok := s.b.vhost(s.vhost).queues[p.queue]; ok {
		q.unacked--
	}
	return nil
}

func (s *fakeSession) Nack(tag uint64, requeue bool) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	p, ok := s.unacked[tag]
	if !ok {
		return fmt.Errorf("unknown delivery tag %d", tag)
	}
	delete(s.unacked, tag)
	s.returnLocked(p, requeue)
	return nil
}

func (s *fakeSession) returnLocked(p pending, requeue bool) {
	q, ok := s.b.vhost(s.vhost).queues[p.queue]
	if !ok {
		return
	}
	q.unacked--
	if requeue {
		q.messages = append([]amqp.Publishing{p.msg}, q.messages...)
	}
}

// Close requeues every unacknowledged delivery, keeping their original order.
func (s *fakeSession) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.b.openSessions--

	tags := make([]uint64, 0, len(s.unacked))
	for tag := range s.unacked {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] > tags[j] })
	for _, tag := range tags {
		s.returnLocked(s.unacked[tag], true)
		delete(s.unacked, tag)
	}
	return nil
}

type fakeStream struct {
	s     *fakeSession
	queue string
	done  bool
}

func (st *fakeStream) Next(ctx context.Context) (transport.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return transport.Delivery{}, err
	}
	if st.done {
		return transport.Delivery{}, transport.ErrInactive
	}
	s := st.s
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	q, ok := s.b.vhost(s.vhost).queues[st.queue]
	if !ok || len(q.messages) == 0 {
		st.done = true
		return transport.Delivery{}, transport.ErrInactive
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	q.unacked++
	s.nextTag++
	s.unacked[s.nextTag] = pending{queue: st.queue, msg: msg}
	return transport.Delivery{Tag: s.nextTag, Message: msg}, nil
}

func (st *fakeStream) Close() error {
	st.done = true
	return nil
}
