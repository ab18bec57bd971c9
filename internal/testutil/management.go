package testutil

import (
	"net"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/ottermq/qhop/internal/core/models"
)

const (
	Username = "guest"
	Password = "guest"
)

// ManagementServer serves a Broker through the RabbitMQ management HTTP API.
type ManagementServer struct {
	app    *fiber.App
	broker *Broker
	ln     net.Listener
}

// NewManagementServer starts serving b on a loopback port.
func NewManagementServer(b *Broker, username, password string) (*ManagementServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &ManagementServer{broker: b, ln: ln}
	s.app = fiber.New(fiber.Config{
		AppName:               "qhop-fake-management",
		DisableStartupMessage: true,
		// names are stored in the broker beyond the handler's lifetime
		Immutable: true,
	})
	s.app.Use(basicauth.New(basicauth.Config{
		Users: map[string]string{username: password},
	}))
	s.addAPI()
	go func() { _ = s.app.Listener(ln) }()
	return s, nil
}

// StartManagementServer starts a server for the duration of t and returns its base URL.
func StartManagementServer(t *testing.T, b *Broker) string {
	t.Helper()
	s, err := NewManagementServer(b, Username, Password)
	if err != nil {
		t.Fatalf("failed to start management server: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s.URL()
}

func (s *ManagementServer) URL() string {
	return "http://" + s.ln.Addr().String()
}

func (s *ManagementServer) Close() error {
	return s.app.Shutdown()
}

func (s *ManagementServer) addAPI() {
	api := s.app.Group("/api")

	api.Get("/queues/:vhost", s.listQueues)
	api.Get("/queues/:vhost/:queue", s.getQueue)
	api.Put("/queues/:vhost/:queue", s.putQueue)
	api.Delete("/queues/:vhost/:queue", s.deleteQueue)
	api.Get("/queues/:vhost/:queue/bindings", s.listQueueBindings)
	api.Post("/bindings/:vhost/e/:exchange/q/:queue", s.createBinding)
	api.Get("/policies/:vhost", s.listPolicies)
}

func param(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}

// begin decodes the vhost and queue params, records the request and applies
// any injected failure. It returns false when the response has been written.
func (s *ManagementServer) begin(c *fiber.Ctx, op Op) (vhost, queue string, ok bool) {
	vhost, err := param(c, "vhost")
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: "invalid vhost"})
		return "", "", false
	}
	queue, err = param(c, "queue")
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: "invalid queue name"})
		return "", "", false
	}
	s.broker.record(op, queue)
	if status := s.broker.injectedFailure(op, queue); status != 0 {
		_ = c.Status(status).JSON(models.ErrorResponse{Error: "injected", Reason: string(op) + " failed"})
		return "", "", false
	}
	return vhost, queue, true
}

func notFound(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "Object Not Found", Reason: reason})
}

func (s *ManagementServer) listQueues(c *fiber.Ctx) error {
	vhost, _, ok := s.begin(c, OpListQueues)
	if !ok {
		return nil
	}
	b := s.broker
	b.mu.Lock()
	out := make([]models.QueueDTO, 0)
	for _, name := range b.vhost(vhost).order {
		if q, ok := b.queueLocked(vhost, name); ok {
			out = append(out, q)
		}
	}
	b.mu.Unlock()
	return c.Status(fiber.StatusOK).JSON(out)
}

func (s *ManagementServer) getQueue(c *fiber.Ctx) error {
	vhost, queue, ok := s.begin(c, OpGetQueue)
	if !ok {
		return nil
	}
	q, found := s.broker.Queue(vhost, queue)
	if !found {
		return notFound(c, "queue not found")
	}
	return c.Status(fiber.StatusOK).JSON(q)
}

func (s *ManagementServer) putQueue(c *fiber.Ctx) error {
	vhost, queue, ok := s.begin(c, OpPutQueue)
	if !ok {
		return nil
	}
	var request models.PutQueueRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: err.Error()})
	}

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.queueLocked(vhost, queue); exists {
		return c.SendStatus(fiber.StatusNoContent)
	}
	b.declareLocked(vhost, models.QueueDTO{
		Name:       queue,
		Durable:    request.Durable,
		AutoDelete: request.AutoDelete,
		Arguments:  request.Arguments,
	})
	return c.SendStatus(fiber.StatusCreated)
}

func (s *ManagementServer) deleteQueue(c *fiber.Ctx) error {
	vhost, queue, ok := s.begin(c, OpDeleteQueue)
	if !ok {
		return nil
	}
	ifEmpty := c.Query("if-empty") == "true"

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	q, exists := b.queueLocked(vhost, queue)
	if !exists {
		return notFound(c, "queue not found")
	}
	if ifEmpty && q.Messages > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: "queue not empty"})
	}

	vh := b.vhost(vhost)
	delete(vh.queues, queue)
	order := vh.order[:0]
	for _, name := range vh.order {
		if name != queue {
			order = append(order, name)
		}
	}
	vh.order = order
	bindings := vh.bindings[:0]
	for _, bd := range vh.bindings {
		if bd.Destination != queue {
			bindings = append(bindings, bd)
		}
	}
	vh.bindings = bindings
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *ManagementServer) listQueueBindings(c *fiber.Ctx) error {
	vhost, queue, ok := s.begin(c, OpListBindings)
	if !ok {
		return nil
	}
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.queueLocked(vhost, queue); !exists {
		return notFound(c, "queue not found")
	}
	out := []models.Binding{{
		Source:          "",
		VHost:           vhost,
		Destination:     queue,
		DestinationType: "queue",
		RoutingKey:      queue,
		Arguments:       models.Arguments{},
		PropertiesKey:   queue,
	}}
	out = append(out, b.bindingsLocked(vhost, queue)...)
	return c.Status(fiber.StatusOK).JSON(out)
}

func (s *ManagementServer) createBinding(c *fiber.Ctx) error {
	vhost, queue, ok := s.begin(c, OpCreateBinding)
	if !ok {
		return nil
	}
	exchange, err := param(c, "exchange")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: "invalid exchange name"})
	}
	var request models.CreateBindingRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "bad_request", Reason: err.Error()})
	}

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.queueLocked(vhost, queue); !exists {
		return notFound(c, "queue not found")
	}
	b.bindLocked(vhost, exchange, queue, request.RoutingKey, request.Arguments)
	return c.SendStatus(fiber.StatusCreated)
}

func (s *ManagementServer) listPolicies(c *fiber.Ctx) error {
	vhost, _, ok := s.begin(c, OpListPolicies)
	if !ok {
		return nil
	}
	b := s.broker
	b.mu.Lock()
	out := append(make([]models.Policy, 0), b.vhost(vhost).policies...)
	b.mu.Unlock()
	return c.Status(fiber.StatusOK).JSON(out)
}
