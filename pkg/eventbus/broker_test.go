package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewBroker(rdb)
}

func TestBroker_PublishSequenceNumbersIncreasePerTopic(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	seq1, err := b.Publish(ctx, "inventory:update", []byte("one"))
	require.NoError(t, err)
	require.EqualValues(t, 1, seq1)

	seq2, err := b.Publish(ctx, "inventory:update", []byte("two"))
	require.NoError(t, err)
	require.EqualValues(t, 2, seq2)

	seq3, err := b.Publish(ctx, "billing:update", []byte("three"))
	require.NoError(t, err)
	require.EqualValues(t, 1, seq3, "a different topic starts its own sequence")
}

func TestBroker_SubscribeExactChannelReceivesPublished(t *testing.T) {
	b := newTestBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	envelopes, closeSub, err := b.Subscribe(ctx, "inventory:update")
	require.NoError(t, err)
	defer closeSub()

	time.Sleep(50 * time.Millisecond) // let the subscription settle

	_, err = b.Publish(context.Background(), "inventory:update", []byte("payload"))
	require.NoError(t, err)

	select {
	case env := <-envelopes:
		require.Equal(t, "inventory:update", env.Topic)
		require.Equal(t, []byte("payload"), env.Payload)
		require.EqualValues(t, 1, env.SequenceID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}

func TestBroker_SubscribeWildcardMatchesPrefix(t *testing.T) {
	b := newTestBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	envelopes, closeSub, err := b.Subscribe(ctx, "inventory:*")
	require.NoError(t, err)
	defer closeSub()

	time.Sleep(50 * time.Millisecond)

	_, err = b.Publish(context.Background(), "inventory:low_stock", []byte("alert"))
	require.NoError(t, err)

	select {
	case env := <-envelopes:
		require.Equal(t, "inventory:low_stock", env.Topic)
	case <-ctx.Done():
		t.Fatal("timed out waiting for envelope")
	}
}
