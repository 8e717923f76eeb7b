package bus

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

var (
	_ domain.EventBus = (*ChannelBus)(nil)
	_ domain.EventBus = (*NATSBus)(nil)
)

// New creates a new event bus based on configuration.
// "channel" keeps everything in process; "nats" connects to a NATS server.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, eris.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// PublishJSON encodes v and publishes it on topic.
func PublishJSON(ctx context.Context, b domain.EventBus, tenantID, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "encode %s payload", topic)
	}
	return b.Publish(ctx, tenantID, topic, payload)
}

// RequestJSON encodes req, waits for the reply and decodes it into resp.
func RequestJSON(ctx context.Context, b domain.EventBus, tenantID, topic string, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrapf(err, "encode %s request", topic)
	}

	reply, err := b.Request(ctx, tenantID, topic, payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(reply, resp); err != nil {
		return eris.Wrapf(err, "decode %s reply", topic)
	}
	return nil
}

// Reply answers msg when it carries a reply topic. It reports whether a
// reply was sent.
func Reply(ctx context.Context, b domain.EventBus, msg *domain.Message, payload []byte) (bool, error) {
	replyTo := msg.Metadata[domain.MetadataReplyTo]
	if replyTo == "" {
		return false, nil
	}
	if err := b.Publish(ctx, msg.TenantID, replyTo, payload); err != nil {
		return false, eris.Wrap(err, "publish reply")
	}
	return true, nil
}
