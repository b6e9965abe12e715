package state

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/presence/src/peers"
)

// Clock is a monotonically increasing logical clock scoped to one replica.
// The zero value means "nothing observed yet".
type Clock uint64

// Tag uniquely identifies one add event: the replica that performed it and
// the value of that replica's clock at the time.
type Tag struct {
	Replica peers.Replica `json:"replica"`
	Clock   Clock         `json:"clock"`
}

// String returns a compact representation used in logs and errors.
func (t Tag) String() string {
	return fmt.Sprintf("%s@%d", t.Replica, t.Clock)
}

// tagSet is the cloud: tags known to exist but not yet contiguous with the
// context.
type tagSet map[Tag]struct{}

func newTagSet() tagSet {
	return make(tagSet)
}

func (ts tagSet) add(t Tag) {
	ts[t] = struct{}{}
}

func (ts tagSet) remove(t Tag) {
	delete(ts, t)
}

func (ts tagSet) contains(t Tag) bool {
	_, ok := ts[t]
	return ok
}

func (ts tagSet) copy() tagSet {
	res := make(tagSet, len(ts))
	for t := range ts {
		res[t] = struct{}{}
	}
	return res
}

// sorted returns the tags ordered by (replica, clock). Compaction folds over
// this ordering so that contiguous runs are absorbed in one pass.
func (ts tagSet) sorted() []Tag {
	res := make([]Tag, 0, len(ts))
	for t := range ts {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Replica != res[j].Replica {
			return res[i].Replica < res[j].Replica
		}
		return res[i].Clock < res[j].Clock
	})
	return res
}
