package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/ottermq/qhop/internal/migration"
	"github.com/ottermq/qhop/internal/relocation"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ClassicToQuorum(t *testing.T) {
	requireManagement(t)
	tc := NewTestConnection(t, brokerURL)
	name := tc.UniqueQueueName("orders")
	tc.DeclareQueue(name, amqp.Table{"x-max-priority": int32(5), "x-message-ttl": int32(600000)})
	t.Cleanup(func() { tc.DeleteQueue(migration.TempQueueName(name)) })
	require.NoError(t, tc.Ch.QueueBind(name, "order.created", "amq.topic", false, nil))
	require.NoError(t, tc.Ch.QueueBind(name, name, "amq.direct", false, nil))
	tc.PublishMessages(name, 5)
	tc.WaitForDepth(name, 5, 5*time.Second)

	dialer, vhost := newDialer(t)
	control := newManagementClient()
	o := migration.New(migration.Options{
		Control: control,
		Relocator: relocation.NewEngine(dialer, relocation.Options{
			InactivityTimeout: time.Second,
			ConfirmDelivery:   true,
			Logger:            log.Logger,
		}),
		Logger: log.Logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	out, err := o.Migrate(ctx, vhost, name, "quorum")
	require.NoError(t, err, out.RecoveryHint)
	assert.Equal(t, 5, out.MovedBack)
	assert.Equal(t, 2, out.Rebound)
	assert.Equal(t, []string{"x-max-priority"}, out.RemovedArguments)

	q, err := control.GetQueue(ctx, vhost, name)
	require.NoError(t, err)
	assert.Equal(t, "quorum", q.Type)
	assert.NotContains(t, q.Arguments, "x-max-priority")

	exists, err := control.QueueExists(ctx, vhost, migration.TempQueueName(name))
	require.NoError(t, err)
	assert.False(t, exists)

	bindings, err := control.ListQueueBindings(ctx, vhost, name)
	require.NoError(t, err)
	sources := map[string]string{}
	for _, b := range bindings {
		sources[b.Source] = b.RoutingKey
	}
	assert.Equal(t, "order.created", sources["amq.topic"])
	assert.Equal(t, name, sources["amq.direct"])

	msgs := tc.GetAll(name)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, messageBody(i), m.Body)
	}
}
