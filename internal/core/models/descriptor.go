package models

// QueueTypeArgument is the queue argument carrying the queue type.
const QueueTypeArgument = "x-queue-type"

// DefaultQueueType is assumed when neither the broker nor the arguments report a type.
const DefaultQueueType = "classic"

// Arguments holds the optional x-arguments of a queue or binding.
type Arguments map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (a Arguments) Clone() Arguments {
	out := make(Arguments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Has reports whether key is present.
func (a Arguments) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// QueueDescriptor is a snapshot of a queue's declared settings.
// It is never mutated after it has been read; derived argument sets are copies.
type QueueDescriptor struct {
	Name       string    `json:"queue_name" yaml:"queue_name"`
	VHost      string    `json:"vhost" yaml:"vhost"`
	Type       string    `json:"type" yaml:"type"`
	Durable    bool      `json:"durable" yaml:"durable"`
	Exclusive  bool      `json:"exclusive" yaml:"exclusive"`
	AutoDelete bool      `json:"auto_delete" yaml:"auto_delete"`
	Arguments  Arguments `json:"arguments" yaml:"arguments"`

	// Policy is the name of the policy the broker reports as applied, if any.
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// Binding is a routing rule from an exchange to a queue.
type Binding struct {
	Source          string    `json:"source" yaml:"source"`
	VHost           string    `json:"vhost" yaml:"vhost"`
	Destination     string    `json:"destination" yaml:"destination"`
	DestinationType string    `json:"destination_type" yaml:"destination_type"`
	RoutingKey      string    `json:"routing_key" yaml:"routing_key"`
	Arguments       Arguments `json:"arguments" yaml:"arguments"`
	PropertiesKey   string    `json:"properties_key,omitempty" yaml:"properties_key,omitempty"`
}

// IsDefault reports whether b is the implicit binding to the default exchange.
func (b Binding) IsDefault() bool {
	return b.Source == ""
}

// Policy is a pattern-matched configuration override.
type Policy struct {
	Name       string         `json:"name" yaml:"name"`
	VHost      string         `json:"vhost,omitempty" yaml:"vhost,omitempty"`
	Pattern    string         `json:"pattern" yaml:"pattern"`
	ApplyTo    string         `json:"apply-to" yaml:"apply-to"`
	Definition map[string]any `json:"definition" yaml:"definition"`
	Priority   int            `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// QueueSummary is the row shown when listing queues.
type QueueSummary struct {
	Name      string `json:"name"`
	VHost     string `json:"vhost"`
	Type      string `json:"type"`
	Messages  int    `json:"messages"`
	Consumers int    `json:"consumers"`
	State     string `json:"state"`
}
