package models

// QueueDTO is a queue object as returned by the management API and as found
// in a definitions export.
type QueueDTO struct {
	// Identity
	VHost string `json:"vhost"`
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`

	// Message counts
	Messages        int `json:"messages"`
	MessagesReady   int `json:"messages_ready"`
	MessagesUnacked int `json:"messages_unacknowledged"`

	Consumers int `json:"consumers"`

	// Properties/flags
	Durable    bool      `json:"durable"`
	AutoDelete bool      `json:"auto_delete"`
	Exclusive  bool      `json:"exclusive"`
	Arguments  Arguments `json:"arguments"`

	Policy string `json:"policy,omitempty"`
	State  string `json:"state,omitempty"` // "running", "idle", "flow"
}

// QueueType resolves the queue type from the type field, falling back to the
// x-queue-type argument and finally to classic.
func (q QueueDTO) QueueType() string {
	if q.Type != "" {
		return q.Type
	}
	if t, ok := q.Arguments[QueueTypeArgument].(string); ok && t != "" {
		return t
	}
	return DefaultQueueType
}

// Descriptor converts q into a QueueDescriptor. vhost is used when the DTO
// does not carry one.
func (q QueueDTO) Descriptor(vhost string) QueueDescriptor {
	if q.VHost != "" {
		vhost = q.VHost
	}
	return QueueDescriptor{
		Name:       q.Name,
		VHost:      vhost,
		Type:       q.QueueType(),
		Durable:    q.Durable,
		Exclusive:  q.Exclusive,
		AutoDelete: q.AutoDelete,
		Arguments:  q.Arguments.Clone(),
		Policy:     q.Policy,
	}
}

// Summary converts q into a QueueSummary.
func (q QueueDTO) Summary() QueueSummary {
	return QueueSummary{
		Name:      q.Name,
		VHost:     q.VHost,
		Type:      q.QueueType(),
		Messages:  q.Messages,
		Consumers: q.Consumers,
		State:     q.State,
	}
}

// DefaultVHost is assumed for definitions entries that name no vhost.
const DefaultVHost = "/"

// Definitions is the subset of a broker definitions export the planner reads.
type Definitions struct {
	Queues   []DefinitionQueue `json:"queues"`
	Policies []Policy          `json:"policies"`
}

// DefinitionQueue is a queue entry of a definitions export. Exports may leave
// out durable, which then defaults to true.
type DefinitionQueue struct {
	VHost      string    `json:"vhost"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	Durable    *bool     `json:"durable"`
	AutoDelete bool      `json:"auto_delete"`
	Exclusive  bool      `json:"exclusive"`
	Arguments  Arguments `json:"arguments"`
}

// DTO converts q into a QueueDTO, filling in the defaults of a missing vhost
// and durable flag.
func (q DefinitionQueue) DTO() QueueDTO {
	durable := true
	if q.Durable != nil {
		durable = *q.Durable
	}
	vhost := q.VHost
	if vhost == "" {
		vhost = DefaultVHost
	}
	return QueueDTO{
		VHost:      vhost,
		Name:       q.Name,
		Type:       q.Type,
		Durable:    durable,
		AutoDelete: q.AutoDelete,
		Exclusive:  q.Exclusive,
		Arguments:  q.Arguments,
	}
}

// PoliciesFor returns the policies declared for vhost, in document order.
func (d Definitions) PoliciesFor(vhost string) []Policy {
	var out []Policy
	for _, p := range d.Policies {
		if p.VHost == "" || p.VHost == vhost {
			out = append(out, p)
		}
	}
	return out
}
