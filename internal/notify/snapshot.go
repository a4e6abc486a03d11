package notify

import (
	"errors"
	"fmt"

	"github.com/nlefebvre/taskhive/internal/store"
)

// Builder materializes per-member snapshots for a group.
type Builder struct {
	store store.Store
}

// NewBuilder creates a Builder reading from the given store.
func NewBuilder(st store.Store) *Builder {
	return &Builder{store: st}
}

// BuildGroupSnapshots returns one fully hydrated snapshot per current member
// of the group, in member join order. A group that no longer exists yields an
// empty slice and no error: a mutation racing a group delete is a no-op
// notification, not a failure.
//
// Fetch cost is O(members × average group size); fine for small collaborative
// lists, a scaling limit beyond that.
func (b *Builder) BuildGroupSnapshots(groupID string) ([]store.MemberSnapshot, error) {
	graph, err := b.store.GetGroupGraph(groupID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching group %s: %w", groupID, err)
	}

	snapshots := make([]store.MemberSnapshot, 0, len(graph.Members))
	for _, member := range graph.Members {
		snap, err := b.store.GetUserGraph(member.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching graph for member %s: %w", member.ID, err)
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, nil
}
