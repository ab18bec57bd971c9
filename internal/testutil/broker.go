// Package testutil provides an in-memory broker that speaks the management API
// over HTTP and implements transport.Dialer for the data plane.
package testutil

import (
	"sync"

	"github.com/ottermq/qhop/internal/core/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Op names a management API operation for failure injection and hooks.
type Op string

const (
	OpListQueues    Op = "list_queues"
	OpGetQueue      Op = "get_queue"
	OpPutQueue      Op = "put_queue"
	OpDeleteQueue   Op = "delete_queue"
	OpListBindings  Op = "list_bindings"
	OpCreateBinding Op = "create_binding"
	OpListPolicies  Op = "list_policies"
)

type failure struct {
	status int
	times  int // <= 0 means always
}

type fakeQueue struct {
	dto      models.QueueDTO
	messages []amqp.Publishing
	unacked  int
}

type vhostState struct {
	queues   map[string]*fakeQueue
	order    []string
	bindings []models.Binding
	policies []models.Policy
}

// Broker is a fake RabbitMQ node. All methods are safe for concurrent use.
type Broker struct {
	mu       sync.Mutex
	vhosts   map[string]*vhostState
	failures map[string]*failure
	requests []string

	publishFailures map[string]int
	dropped         map[string]int
	openSessions    int
	dials           int

	// OnRequest, when set, is called for every management request after
	// authentication and before it is served.
	OnRequest func(op Op, queue string)
}

func NewBroker() *Broker {
	return &Broker{
		vhosts:          make(map[string]*vhostState),
		failures:        make(map[string]*failure),
		publishFailures: make(map[string]int),
		dropped:         make(map[string]int),
	}
}

func (b *Broker) vhost(name string) *vhostState {
	vh, ok := b.vhosts[name]
	if !ok {
		vh = &vhostState{queues: make(map[string]*fakeQueue)}
		b.vhosts[name] = vh
	}
	return vh
}

// DeclareQueue creates q in vhost, replacing an existing queue of the same name.
func (b *Broker) DeclareQueue(vhost string, q models.QueueDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.declareLocked(vhost, q)
}

func (b *Broker) declareLocked(vhost string, q models.QueueDTO) {
	vh := b.vhost(vhost)
	q.VHost = vhost
	q.Type = q.QueueType()
	if q.Arguments == nil {
		q.Arguments = models.Arguments{}
	}
	if q.State == "" {
		q.State = "running"
	}
	if _, ok := vh.queues[q.Name]; !ok {
		vh.order = append(vh.order, q.Name)
	}
	vh.queues[q.Name] = &fakeQueue{dto: q}
}

// Publish appends messages with the given bodies to a queue.
func (b *Broker) Publish(vhost, queue string, bodies ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.vhost(vhost).queues[queue]
	if !ok {
		return
	}
	for _, body := range bodies {
		q.messages = append(q.messages, amqp.Publishing{ContentType: "text/plain", Body: []byte(body)})
	}
}

// Bind adds a binding from exchange to queue.
func (b *Broker) Bind(vhost, exchange, queue, routingKey string, args models.Arguments) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindLocked(vhost, exchange, queue, routingKey, args)
}

func (b *Broker) bindLocked(vhost, exchange, queue, routingKey string, args models.Arguments) {
	if args == nil {
		args = models.Arguments{}
	}
	vh := b.vhost(vhost)
	vh.bindings = append(vh.bindings, models.Binding{
		Source:          exchange,
		VHost:           vhost,
		Destination:     queue,
		DestinationType: "queue",
		RoutingKey:      routingKey,
		Arguments:       args,
		PropertiesKey:   routingKey,
	})
}

// AddPolicy appends a policy to vhost.
func (b *Broker) AddPolicy(vhost string, p models.Policy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p.VHost = vhost
	b.vhost(vhost).policies = append(b.vhost(vhost).policies, p)
}

// Queue returns the queue as the management API would report it.
func (b *Broker) Queue(vhost, name string) (models.QueueDTO, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queueLocked(vhost, name)
}

func (b *Broker) queueLocked(vhost, name string) (models.QueueDTO, bool) {
	q, ok := b.vhost(vhost).queues[name]
	if !ok {
		return models.QueueDTO{}, false
	}
	dto := q.dto
	dto.Arguments = q.dto.Arguments.Clone()
	dto.MessagesReady = len(q.messages)
	dto.MessagesUnacked = q.unacked
	dto.Messages = dto.MessagesReady + dto.MessagesUnacked
	return dto, true
}

// Messages returns the bodies of the ready messages of a queue, in order.
func (b *Broker) Messages(vhost, queue string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.vhost(vhost).queues[queue]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(q.messages))
	for _, m := range q.messages {
		out = append(out, string(m.Body))
	}
	return out
}

// Bindings returns the explicit bindings whose destination is queue.
func (b *Broker) Bindings(vhost, queue string) []models.Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindingsLocked(vhost, queue)
}

func (b *Broker) bindingsLocked(vhost, queue string) []models.Binding {
	var out []models.Binding
	for _, bd := range b.vhost(vhost).bindings {
		if bd.Destination == queue {
			out = append(out, bd)
		}
	}
	return out
}

// QueueNames lists the queues of vhost in declaration order.
func (b *Broker) QueueNames(vhost string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.vhost(vhost).order...)
}

// FailOn makes op on queue answer with status. queue "" matches any queue.
// times <= 0 fails forever; otherwise the failure clears after times requests.
func (b *Broker) FailOn(op Op, queue string, status, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[string(op)+"|"+queue] = &failure{status: status, times: times}
}

// FailPublishTo lets after more publishes to queue succeed and fails every
// publish to it from then on.
func (b *Broker) FailPublishTo(queue string, after int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishFailures[queue] = after
}

// DropPublishesTo silently discards the next n confirmed publishes to queue.
func (b *Broker) DropPublishesTo(queue string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped[queue] = n
}

// OpenSessions returns the number of data-plane sessions not yet closed.
func (b *Broker) OpenSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openSessions
}

// Dials returns the number of data-plane sessions opened so far.
func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Requests returns the management operations served so far, as "op queue".
func (b *Broker) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Broker) injectedFailure(op Op, queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range []string{string(op) + "|" + queue, string(op) + "|"} {
		f, ok := b.failures[key]
		if !ok {
			continue
		}
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				delete(b.failures, key)
			}
		}
		return f.status
	}
	return 0
}

func (b *Broker) record(op Op, queue string) {
	b.mu.Lock()
	b.requests = append(b.requests, string(op)+" "+queue)
	hook := b.OnRequest
	b.mu.Unlock()
	if hook != nil {
		hook(op, queue)
	}
}
