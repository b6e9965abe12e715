package state

import (
	"fmt"

	"github.com/mosaicnetworks/presence/src/peers"
)

// NotContiguousError is returned by MergeDeltas when the local delta's
// window ends before the remote delta's window starts for some replica.
// Stitching the two would leave a gap in that replica's history, so the
// caller should discard the remote delta and fall back to a full-state
// exchange, or wait for an overlapping delta.
type NotContiguousError struct {
	Replica peers.Replica
	End     Clock
	Start   Clock
}

// Error implements the Error interface
func (e NotContiguousError) Error() string {
	return fmt.Sprintf("deltas not contiguous for %s: local window ends at %d, remote starts at %d", e.Replica, e.End, e.Start)
}

// IsNotContiguous checks that an error is of type NotContiguousError. It is
// the expected outcome of batching deltas from a lagging peer, not a fault.
func IsNotContiguous(err error) bool {
	_, ok := err.(NotContiguousError)
	return ok
}
