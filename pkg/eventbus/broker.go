// Package eventbus wraps the Event Bus's Redis Pub/Sub broker: Publish
// stamps an envelope with a strictly increasing per-topic sequence number
// and forwards it to a channel; Subscribe drains a channel (or a pattern
// of channels) and streams envelopes back until the caller disconnects.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marmos91/capfabric/pkg/rpc"
)

const channelPrefix = "capfabric:event:"

func channelFor(topic string) string {
	return channelPrefix + topic
}

// envelope is the JSON payload carried over the Redis channel.
type envelope struct {
	Topic      string  `json:"topic"`
	Payload    string  `json:"payload"`
	SequenceID uint64  `json:"sequence_id"`
	Timestamp  float64 `json:"timestamp"`
}

const stripeCount = 32

// sequencer hands out strictly increasing per-topic sequence numbers. The
// counter map is split across stripeCount mutex-guarded shards, keyed by
// a hash of the topic, so two unrelated topics share a lock only when
// their hashes land on the same shard, rather than on every call the way
// a single global lock would force them to. Counters live only in this
// process's memory: they are not shared across replicas and start again
// from 1 after a restart.
type sequencer struct {
	shards [stripeCount]struct {
		mu      sync.Mutex
		counter map[string]uint64
	}
}

func newSequencer() *sequencer {
	s := &sequencer{}
	for i := range s.shards {
		s.shards[i].counter = make(map[string]uint64)
	}
	return s
}

func (s *sequencer) next(topic string) uint64 {
	shard := &s.shards[stripeIndex(topic)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.counter[topic]++
	return shard.counter[topic]
}

func stripeIndex(topic string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return h.Sum32() % stripeCount
}

// Broker wraps the Redis client backing Event Bus pub/sub.
type Broker struct {
	rdb *redis.Client
	seq *sequencer
}

// NewBroker builds a Broker over an existing Redis client.
func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb, seq: newSequencer()}
}

// Publish assigns the next sequence number for topic, wraps payload in an
// envelope, and publishes it to the topic's channel.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) (sequenceID uint64, err error) {
	seq := b.seq.next(topic)

	env := envelope{
		Topic:      topic,
		Payload:    string(payload),
		SequenceID: seq,
		Timestamp:  float64(time.Now().UnixNano()) / 1e9,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("eventbus: marshal envelope: %w", err)
	}

	if err := b.rdb.Publish(ctx, channelFor(topic), data).Err(); err != nil {
		return 0, fmt.Errorf("eventbus: publish: %w", err)
	}
	return seq, nil
}

// Subscribe opens a Redis subscription for topicFilter: a pattern
// subscription if it ends in "*", otherwise an exact channel. It returns
// a channel of decoded envelopes and a close function the caller must
// invoke once done draining.
func (b *Broker) Subscribe(ctx context.Context, topicFilter string) (<-chan *rpc.EventEnvelope, func(), error) {
	var pubsub *redis.PubSub
	if strings.HasSuffix(topicFilter, "*") {
		prefix := strings.TrimSuffix(topicFilter, "*")
		pubsub = b.rdb.PSubscribe(ctx, channelFor(prefix)+"*")
	} else {
		pubsub = b.rdb.Subscribe(ctx, channelFor(topicFilter))
	}

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("eventbus: subscribe: %w", err)
	}

	out := make(chan *rpc.EventEnvelope)
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
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					continue
				}
				select {
				case out <- &rpc.EventEnvelope{Topic: env.Topic, Payload: []byte(env.Payload), SequenceID: env.SequenceID}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }, nil
}
