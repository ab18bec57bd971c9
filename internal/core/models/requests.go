package models

// PutQueueRequest is the body of PUT /api/queues/{vhost}/{name}.
type PutQueueRequest struct {
	Durable    bool      `json:"durable"`
	AutoDelete bool      `json:"auto_delete"`
	Arguments  Arguments `json:"arguments"`
}

// CreateBindingRequest is the body of POST /api/bindings/{vhost}/e/{exchange}/q/{queue}.
type CreateBindingRequest struct {
	RoutingKey string    `json:"routing_key"`
	Arguments  Arguments `json:"arguments"`
}
