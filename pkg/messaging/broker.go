package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// MessageTypeStateUpdate is the only message type carried on the queue
// sync channel.
const MessageTypeStateUpdate = "STATE_UPDATE"

// Message is the envelope published on a sync channel.
type Message struct {
	Type  string      `json:"type"`
	State interface{} `json:"state"`
}
