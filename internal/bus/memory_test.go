package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_PublishFansOutToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewInMemoryBus()

	ch1, err := b.Subscribe(ctx)
	require.NoError(t, err)
	ch2, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, []byte("record")))

	assert.Equal(t, []byte("record"), <-ch1)
	assert.Equal(t, []byte("record"), <-ch2)
}

func TestInMemoryBus_PublishWithNoSubscribersIsNoop(t *testing.T) {
	b := NewInMemoryBus()
	assert.NoError(t, b.Publish(context.Background(), []byte("record")))
}

func TestInMemoryBus_SubscribeChannelClosesOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewInMemoryBus()

	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestInMemoryBus_SlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewInMemoryBus()
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		require.NoError(t, b.Publish(ctx, []byte("record")))
	}

	assert.Equal(t, []byte("record"), <-ch)
}
