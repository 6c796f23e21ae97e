// Package bus is the broadcast layer behind the log relay: devices publish
// ephemeral log lines into a per-user group, open WebSocket connections
// subscribe to that group. Delivery is at-most-once and fire-and-forget;
// nothing is queued for disconnected listeners.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// LogMessage is one relayed device log line.
type LogMessage struct {
	Prefix  string `json:"prefix"`
	Message string `json:"message"`
}

// Subscription is one listener's membership in a group. C delivers messages
// until Close, which leaves the group.
type Subscription struct {
	C     <-chan LogMessage
	close func()
	once  sync.Once
}

// Close leaves the group and releases the subscription.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// Bus is the broadcast abstraction: publish to a group, subscribe to a
// group's stream. Implementations: in-memory fan-out and Redis pub/sub.
type Bus interface {
	Publish(ctx context.Context, group string, msg LogMessage) error
	Subscribe(ctx context.Context, group string) (*Subscription, error)
	Close() error
}

// UserGroup returns the broadcast group name for a user's log listeners.
func UserGroup(userId string) string {
	return fmt.Sprintf("user_%s_logs", userId)
}
