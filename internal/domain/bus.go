package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels or NATS.
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	// Responders publish their reply to the topic named in the request's
	// MetadataReplyTo entry.
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `koanf:"type"`

	// Channel settings
	ChannelBufferSize int `koanf:"channelbuffersize"`

	// NATS settings
	NATSUrl           string `koanf:"natsurl"`
	NATSToken         string `koanf:"natstoken"`
	NATSMaxReconnects int    `koanf:"natsmaxreconnects"`
	NATSReconnectWait int    `koanf:"natsreconnectwait"` // seconds
}

// Standard topic names for the analysis pipeline. Buses scope them per
// tenant, e.g. the NATS subject tagspec.<tenant>.rows.ingested.
const (
	TopicRowsIngested = "rows.ingested"
	TopicRowsAnalyzed = "rows.analyzed"
	TopicRulesChanged = "rules.changed"
)

// Message metadata keys.
const (
	MetadataReplyTo = "reply_to"
	MetadataTraceID = "trace_id"
)

// RowBatch is the payload of TopicRowsIngested.
type RowBatch struct {
	BatchID string `json:"batchId"`
	TraceID string `json:"traceId,omitempty"`
	Rows    []Row  `json:"rows"`
}

// AnalyzedBatch is the payload of TopicRowsAnalyzed.
type AnalyzedBatch struct {
	BatchID string        `json:"batchId"`
	TraceID string        `json:"traceId,omitempty"`
	Rows    []AnalyzedRow `json:"rows"`
	Summary Summary       `json:"summary"`
}
