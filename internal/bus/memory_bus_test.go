package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func receiveOne(t *testing.T, sub *Subscription) (LogMessage, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.C:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return LogMessage{}, false
	}
}

func TestMemoryBusDeliversToGroup(t *testing.T) {
	assert := assert.New(t)
	b := NewMemoryBus()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, UserGroup("42"))
	assert.NoError(err)
	defer sub.Close()

	err = b.Publish(ctx, UserGroup("42"), LogMessage{Prefix: "abc123", Message: "boot ok"})
	assert.NoError(err)

	msg, ok := receiveOne(t, sub)
	assert.True(ok)
	assert.Equal("abc123", msg.Prefix)
	assert.Equal("boot ok", msg.Message)
}

func TestMemoryBusGroupIsolation(t *testing.T) {
	assert := assert.New(t)
	b := NewMemoryBus()
	ctx := context.Background()

	subA, err := b.Subscribe(ctx, UserGroup("42"))
	assert.NoError(err)
	defer subA.Close()
	subB, err := b.Subscribe(ctx, UserGroup("7"))
	assert.NoError(err)
	defer subB.Close()

	assert.NoError(b.Publish(ctx, UserGroup("7"), LogMessage{Prefix: "dev7", Message: "only for 7"}))

	msg, ok := receiveOne(t, subB)
	assert.True(ok)
	assert.Equal("only for 7", msg.Message)

	// Group 42's subscriber must never see group 7's message
	select {
	case msg := <-subA.C:
		t.Fatalf("subscriber of another group received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusFanOut(t *testing.T) {
	assert := assert.New(t)
	b := NewMemoryBus()
	ctx := context.Background()

	sub1, _ := b.Subscribe(ctx, UserGroup("42"))
	defer sub1.Close()
	sub2, _ := b.Subscribe(ctx, UserGroup("42"))
	defer sub2.Close()

	assert.NoError(b.Publish(ctx, UserGroup("42"), LogMessage{Prefix: "p", Message: "hello"}))

	for _, sub := range []*Subscription{sub1, sub2} {
		msg, ok := receiveOne(t, sub)
		assert.True(ok)
		assert.Equal("hello", msg.Message)
	}
}

func TestMemoryBusCloseLeavesGroup(t *testing.T) {
	assert := assert.New(t)
	b := NewMemoryBus()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, UserGroup("42"))
	assert.NoError(err)
	sub.Close()
	sub.Close() // idempotent

	// Publishing after close must not panic or deliver
	assert.NoError(b.Publish(ctx, UserGroup("42"), LogMessage{Prefix: "p", Message: "late"}))

	_, ok := <-sub.C
	assert.False(ok, "channel should be closed")
}

func TestMemoryBusPublishWithoutSubscribers(t *testing.T) {
	b := NewMemoryBus()

	// Fire-and-forget: no listeners is not an error
	err := b.Publish(context.Background(), UserGroup("nobody"), LogMessage{Prefix: "p", Message: "dropped"})
	assert.NoError(t, err)
}

func TestMemoryBusDropsWhenSubscriberSaturated(t *testing.T) {
	assert := assert.New(t)
	b := NewMemoryBus()
	ctx := context.Background()

	sub, _ := b.Subscribe(ctx, UserGroup("42"))
	defer sub.Close()

	// Nothing draining the channel: overflow past the buffer must not block
	for i := 0; i < subscriberBuffer+10; i++ {
		assert.NoError(b.Publish(ctx, UserGroup("42"), LogMessage{Prefix: "p", Message: "m"}))
	}
}
