// Package notify recomputes group snapshots after task mutations and fans
// them out to subscribers through the event bus. Notification is advisory:
// it runs off the request path, and a failed or dropped notification never
// affects the mutation that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/nlefebvre/taskhive/internal/bus"
	"github.com/nlefebvre/taskhive/internal/store"
)

// UpdateEvent is published on bus.TopicTaskUpdates, one per group member
// and mutation. It carries the member's complete graph rather than a diff
// because cross-mutation ordering is not guaranteed; each event fully
// replaces the previous client state.
type UpdateEvent struct {
	Recipient string               `json:"recipient"`
	Snapshot  store.MemberSnapshot `json:"snapshot"`
}

// ForRecipient returns a bus predicate matching update events addressed to
// the given user.
func ForRecipient(userID string) bus.Predicate {
	return func(payload any) bool {
		ev, ok := payload.(UpdateEvent)
		return ok && ev.Recipient == userID
	}
}

// Notifier dispatches snapshot recomputation on a background worker so the
// mutating request's latency never includes notification latency.
type Notifier struct {
	builder *Builder
	bus     *bus.Bus
	queue   chan string
}

// NewNotifier creates a Notifier publishing to b. queueSize bounds the
// number of pending notifications; values below 1 fall back to a default.
// Call Run to start the worker.
func NewNotifier(builder *Builder, b *bus.Bus, queueSize int) *Notifier {
	if queueSize < 1 {
		queueSize = 64
	}
	return &Notifier{
		builder: builder,
		bus:     b,
		queue:   make(chan string, queueSize),
	}
}

// Notify schedules a snapshot fan-out for the group. Fire-and-forget: it
// never blocks and never returns an error to the caller. An empty groupID
// (personal task mutation) is a no-op. If the queue is full the
// notification is dropped and logged; the next mutation on the group
// restores consistency.
func (n *Notifier) Notify(groupID string) {
	if groupID == "" {
		return
	}
	select {
	case n.queue <- groupID:
	default:
		slog.Warn("notification queue full, dropping", "group_id", groupID)
	}
}

// Run processes queued notifications until ctx is cancelled.
// Start it from main with go n.Run(ctx).
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case groupID := <-n.queue:
			n.fanOut(groupID)
		}
	}
}

// fanOut publishes one update event per current member of the group.
func (n *Notifier) fanOut(groupID string) {
	snapshots, err := n.builder.BuildGroupSnapshots(groupID)
	if err != nil {
		// Store trouble: drop the notification, the mutation already
		// succeeded and must not be affected.
		slog.Error("snapshot build failed, notification dropped",
			"group_id", groupID,
			"error", err)
		return
	}

	for _, snap := range snapshots {
		n.bus.Publish(bus.TopicTaskUpdates, UpdateEvent{
			Recipient: snap.UserID,
			Snapshot:  snap,
		})
	}

	slog.Debug("group update published",
		"group_id", groupID,
		"recipients", len(snapshots))
}
