package e2e

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TestConnection manages a connection to the broker for testing
type TestConnection struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
	url  string
	t    *testing.T
}

// NewTestConnection creates a new connection and channel for testing
func NewTestConnection(t *testing.T, brokerURL string) *TestConnection {
	conn, err := amqp.Dial(brokerURL)
	if err != nil {
		t.Fatalf("Failed to connect to broker: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		t.Fatalf("Failed to open channel: %v", err)
	}

	tc := &TestConnection{
		Conn: conn,
		Ch:   ch,
		url:  brokerURL,
		t:    t,
	}
	t.Cleanup(tc.Close)
	return tc
}

// Close closes the channel and connection
func (tc *TestConnection) Close() {
	if tc.Ch != nil {
		tc.Ch.Close()
	}
	if tc.Conn != nil {
		tc.Conn.Close()
	}
}

// DeclareQueue declares a durable test queue and deletes it when the test ends
func (tc *TestConnection) DeclareQueue(name string, args amqp.Table) amqp.Queue {
	q, err := tc.Ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		args,
	)
	if err != nil {
		tc.t.Fatalf("Failed to declare queue %s: %v", name, err)
	}
	tc.t.Cleanup(func() { tc.DeleteQueue(name) })
	return q
}

// DeleteQueue removes a queue on its own connection, ignoring errors, so a
// channel closed by a failed assertion does not leak queues
func (tc *TestConnection) DeleteQueue(name string) {
	conn, err := amqp.Dial(tc.url)
	if err != nil {
		return
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return
	}
	defer ch.Close()
	_, _ = ch.QueueDelete(name, false, false, false)
}

// PublishMessages publishes count messages to a queue through the default exchange
func (tc *TestConnection) PublishMessages(queueName string, count int) {
	for i := 0; i < count; i++ {
		err := tc.Ch.PublishWithContext(
			context.Background(),
			"",        // exchange
			queueName, // routing key
			false,     // mandatory
			false,     // immediate
			amqp.Publishing{
				ContentType:  "text/plain",
				DeliveryMode: amqp.Persistent,
				MessageId:    fmt.Sprintf("id-%d", i),
				Headers:      amqp.Table{"seq": int32(i)},
				Body:         messageBody(i),
			},
		)
		if err != nil {
			tc.t.Fatalf("Failed to publish message %d: %v", i, err)
		}
	}
}

// Depth returns the number of ready messages in a queue
func (tc *TestConnection) Depth(queueName string) int {
	q, err := tc.Ch.QueueDeclarePassive(queueName, true, false, false, false, nil)
	if err != nil {
		tc.t.Fatalf("Failed to inspect queue %s: %v", queueName, err)
	}
	return q.Messages
}

// WaitForDepth polls until a queue holds count messages, failing on timeout
func (tc *TestConnection) WaitForDepth(queueName string, count int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		depth := tc.Depth(queueName)
		if depth == count {
			return
		}
		if time.Now().After(deadline) {
			tc.t.Fatalf("Timeout waiting for %s to hold %d messages, has %d", queueName, count, depth)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// GetAll drains a queue with basic.get and returns the messages in order
func (tc *TestConnection) GetAll(queueName string) []amqp.Delivery {
	var received []amqp.Delivery
	for {
		msg, ok, err := tc.Ch.Get(queueName, true)
		if err != nil {
			tc.t.Fatalf("Failed to get from %s: %v", queueName, err)
		}
		if !ok {
			return received
		}
		received = append(received, msg)
	}
}

// UniqueQueueName generates a unique queue name based on the test name
func (tc *TestConnection) UniqueQueueName(prefix string) string {
	testName := tc.t.Name()
	// Replace slashes and other problematic chars with hyphens
	safeName := strings.ReplaceAll(testName, "/", "-")
	safeName = strings.ReplaceAll(safeName, " ", "-")
	return fmt.Sprintf("%s-%s-%d", prefix, safeName, time.Now().UnixNano())
}

func messageBody(i int) []byte {
	return []byte(fmt.Sprintf("Message %d", i))
}
