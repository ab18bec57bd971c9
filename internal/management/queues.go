package management

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ottermq/qhop/internal/core/models"
)

// GetQueue fetches a queue. A missing queue yields an error matching ErrNotFound.
func (c *Client) GetQueue(ctx context.Context, vhost, name string) (models.QueueDescriptor, error) {
	var dto models.QueueDTO
	if err := c.do(ctx, http.MethodGet, "/api/queues/"+escape(vhost, name), nil, &dto); err != nil {
		return models.QueueDescriptor{}, err
	}
	return dto.Descriptor(vhost), nil
}

// ListQueues returns every queue of vhost as reported by the API.
func (c *Client) ListQueues(ctx context.Context, vhost string) ([]models.QueueDTO, error) {
	var queues []models.QueueDTO
	if err := c.do(ctx, http.MethodGet, "/api/queues/"+escape(vhost), nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// QueueExists reports whether vhost holds a queue called name.
func (c *Client) QueueExists(ctx context.Context, vhost, name string) (bool, error) {
	_, err := c.GetQueue(ctx, vhost, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// PutQueue declares a queue.
func (c *Client) PutQueue(ctx context.Context, vhost, name string, req models.PutQueueRequest) error {
	if req.Arguments == nil {
		req.Arguments = models.Arguments{}
	}
	if err := c.do(ctx, http.MethodPut, "/api/queues/"+escape(vhost, name), req, nil); err != nil {
		return err
	}
	c.logger.Debug().Str("vhost", vhost).Str("queue", name).Interface("arguments", req.Arguments).Msg("Queue declared")
	return nil
}

// DeleteQueue deletes a queue. With ifEmpty the broker refuses to delete a
// queue holding messages. A queue that is already gone counts as deleted.
func (c *Client) DeleteQueue(ctx context.Context, vhost, name string, ifEmpty bool) error {
	path := "/api/queues/" + escape(vhost, name)
	if ifEmpty {
		path += "?if-empty=true"
	}
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, ErrNotFound) {
		c.logger.Debug().Str("vhost", vhost).Str("queue", name).Msg("Queue already absent")
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Debug().Str("vhost", vhost).Str("queue", name).Bool("if_empty", ifEmpty).Msg("Queue deleted")
	return nil
}

// ListQueueBindings returns all bindings whose destination is the queue,
// including the implicit default-exchange binding.
func (c *Client) ListQueueBindings(ctx context.Context, vhost, name string) ([]models.Binding, error) {
	var bindings []models.Binding
	if err := c.do(ctx, http.MethodGet, "/api/queues/"+escape(vhost, name, "bindings"), nil, &bindings); err != nil {
		return nil, err
	}
	return bindings, nil
}

// CreateBinding binds queue to exchange.
func (c *Client) CreateBinding(ctx context.Context, vhost, exchange, queue string, req models.CreateBindingRequest) error {
	if exchange == "" {
		return fmt.Errorf("cannot bind queue %q to the default exchange", queue)
	}
	if req.Arguments == nil {
		req.Arguments = models.Arguments{}
	}
	return c.do(ctx, http.MethodPost, "/api/bindings/"+escape(vhost)+"/e/"+escape(exchange)+"/q/"+escape(queue), req, nil)
}

// ListPolicies returns the policies of vhost in the order the API reports them.
func (c *Client) ListPolicies(ctx context.Context, vhost string) ([]models.Policy, error) {
	var policies []models.Policy
	if err := c.do(ctx, http.MethodGet, "/api/policies/"+escape(vhost), nil, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}
