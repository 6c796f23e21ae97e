package bus

import (
	"context"
	"sync"
)

// Buffer per subscriber; a listener this far behind starts dropping.
const subscriberBuffer = 16

// MemoryBus is the in-process Bus used when no Redis address is configured
// (single-instance deployments and tests).
type MemoryBus struct {
	mu     sync.Mutex
	groups map[string]map[chan LogMessage]struct{}
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		groups: make(map[string]map[chan LogMessage]struct{}),
	}
}

// Publish fans the message out to every current subscriber of the group.
// Sends never block: slow subscribers miss messages rather than stalling
// the publisher.
func (b *MemoryBus) Publish(_ context.Context, group string, msg LogMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.groups[group] {
		select {
		case ch <- msg:
		default:
			customLog.Warnf("Bus: dropping message for slow subscriber in group %s", group)
		}
	}
	return nil
}

// Subscribe joins the group and returns a subscription fed by Publish.
func (b *MemoryBus) Subscribe(_ context.Context, group string) (*Subscription, error) {
	ch := make(chan LogMessage, subscriberBuffer)

	b.mu.Lock()
	if b.groups[group] == nil {
		b.groups[group] = make(map[chan LogMessage]struct{})
	}
	b.groups[group][ch] = struct{}{}
	b.mu.Unlock()

	return &Subscription{
		C: ch,
		close: func() {
			b.mu.Lock()
			delete(b.groups[group], ch)
			if len(b.groups[group]) == 0 {
				delete(b.groups, group)
			}
			b.mu.Unlock()
			close(ch)
		},
	}, nil
}

// Close is a no-op for the in-process bus.
func (b *MemoryBus) Close() error {
	return nil
}
