package contexttool

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const telemetryChannelPrefix = "capfabric:telemetry:"

func telemetryChannelFor(streamID string) string {
	return telemetryChannelPrefix + streamID
}

// TelemetryBridge forwards a Redis Pub/Sub channel's raw payloads to a
// Go channel, one per stream_id.
type TelemetryBridge struct {
	rdb *redis.Client
}

// NewTelemetryBridge builds a TelemetryBridge over an existing Redis
// client.
func NewTelemetryBridge(rdb *redis.Client) *TelemetryBridge {
	return &TelemetryBridge{rdb: rdb}
}

// Subscribe opens a subscription to streamID's channel. The returned
// channel carries raw payload bytes; the caller stamps timestamp_ms
// itself on receipt. closeFn must be called once the caller is done
// draining.
func (b *TelemetryBridge) Subscribe(ctx context.Context, streamID string) (payloads <-chan []byte, closeFn func(), err error) {
	pubsub := b.rdb.Subscribe(ctx, telemetryChannelFor(streamID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }, nil
}

// Publish pushes payload onto streamID's channel, for tests and the demo
// CLI to simulate telemetry producers.
func (b *TelemetryBridge) Publish(ctx context.Context, streamID string, payload []byte) error {
	return b.rdb.Publish(ctx, telemetryChannelFor(streamID), payload).Err()
}
