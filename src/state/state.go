package state

import (
	"github.com/mosaicnetworks/presence/src/peers"
)

// Mode discriminates a full replica state from the reduced state used as a
// delta buffer.
type Mode int

const (
	// Normal is a full replica state with an element store and an embedded
	// delta buffer.
	Normal Mode = iota
	// Delta is a reduced state carrying only pending additions, observed
	// removals and the clock window they cover.
	Delta
)

var modes = []string{"Normal", "Delta"}

// String returns the string representation of Mode
func (m Mode) String() string {
	return modes[m]
}

// Range brackets the clock window covered by a delta: Start is the context
// at the last reset, End advances with every local operation.
type Range struct {
	Start Context `json:"start"`
	End   Context `json:"end"`
}

func (r Range) copy() Range {
	return Range{Start: r.Start.Copy(), End: r.End.Copy()}
}

// State is one replica's view of the presence set. In Normal mode it owns
// the element store, the causal context, the tag cloud, the replica liveness
// map and a pending delta buffer. In Delta mode the store is absent; Values
// holds pending additions keyed by tag, the cloud additionally holds
// observed-remove tags, and Range brackets the covered clock window.
type State struct {
	// Replica is the identity of the local replica.
	Replica peers.Replica

	// Context maps replicas to the largest contiguous clock observed from
	// them. Always empty in Delta mode.
	Context Context

	// Cloud holds the tags that are not contiguous with the context. In
	// Delta mode it holds every tag the delta covers, adds and observed
	// removals alike.
	Cloud tagSet

	// Values holds pending additions by tag. Only used in Delta mode.
	Values map[Tag]Payload

	// Range is the covered clock window. Only used in Delta mode.
	Range Range

	// Replicas is the liveness map. The local replica is always Up. Nil in
	// Delta mode.
	Replicas *peers.Map

	// Mode discriminates full states from delta buffers.
	Mode Mode

	store *store
	delta *State
}

// New creates a fresh replica state with the local replica marked Up, an
// empty context, cloud and store, and an empty delta buffer.
func New(replica peers.Replica) *State {
	s := &State{
		Replica:  replica,
		Context:  NewContext(),
		Cloud:    newTagSet(),
		Replicas: peers.NewMap(replica),
		Mode:     Normal,
		store:    newStore(),
	}
	s.delta = newDelta(replica, s.Context.Project(replica))
	return s
}

func newDelta(replica peers.Replica, window Context) *State {
	return &State{
		Replica: replica,
		Context: NewContext(),
		Cloud:   newTagSet(),
		Values:  make(map[Tag]Payload),
		Range:   Range{Start: window.Copy(), End: window.Copy()},
		Mode:    Delta,
	}
}

// Delta returns the pending delta buffer.
func (s *State) Delta() *State {
	s.mustBeNormal()
	return s.delta
}

// Clock returns the local replica's current clock.
func (s *State) Clock() Clock {
	return s.Context[s.Replica]
}

// Clocks returns the local replica id and the causal context, the summary
// exchanged by anti-entropy rounds.
func (s *State) Clocks() (peers.Replica, Context) {
	return s.Replica, s.Context.Copy()
}

// in reports whether the tag is covered by this state: either the context
// subsumes it or the cloud contains it. On a delta-mode state the context is
// empty, so membership reduces to the cloud.
func (s *State) in(tag Tag) bool {
	return s.Context[tag.Replica] >= tag.Clock || s.Cloud.contains(tag)
}

// bumpClock advances the local clock by one, records the new tag in the
// cloud and the delta, and returns it.
func (s *State) bumpClock() Tag {
	clock := s.Context[s.Replica] + 1
	s.Context[s.Replica] = clock

	tag := Tag{Replica: s.Replica, Clock: clock}
	s.Cloud.add(tag)
	s.delta.Cloud.add(tag)
	s.delta.Range.End[s.Replica] = clock

	return tag
}

// Join inserts a membership record for (owner, topic, key) carrying meta,
// tagged with the next local clock, and records the addition in the delta
// buffer.
func (s *State) Join(owner Owner, topic Topic, key Key, meta Meta) Element {
	s.mustBeNormal()

	tag := s.bumpClock()
	el := Element{Owner: owner, Topic: topic, Key: key, Meta: meta, Tag: tag}

	s.store.insert(el)
	s.delta.Values[tag] = el.Payload()

	s.compact()

	return el
}

// Leave removes the owner's record for (topic, key) and returns the removed
// elements. The removal is recorded in the delta buffer as observed-remove
// tags, and the local clock advances so that downstream deltas summarise it.
func (s *State) Leave(owner Owner, topic Topic, key Key) []Element {
	s.mustBeNormal()
	return s.down(owner, &topic, &key)
}

// LeaveOwner removes every record of the owner across all topics.
func (s *State) LeaveOwner(owner Owner) []Element {
	s.mustBeNormal()
	return s.down(owner, nil, nil)
}

func (s *State) down(owner Owner, topic *Topic, key *Key) []Element {
	removed := s.store.removeMatch(owner, topic, key)

	for _, el := range removed {
		s.Cloud.remove(el.Tag)
		delete(s.delta.Values, el.Tag)
		s.delta.Cloud.add(el.Tag)
	}

	s.bumpClock()
	s.compact()

	return removed
}

// OnlineList returns every element whose tag's replica is not currently
// marked Down. Liveness is evaluated at call time, so a flapping replica is
// reflected immediately without rewriting the store.
func (s *State) OnlineList() []Element {
	s.mustBeNormal()
	return s.store.online(s.Replicas.DownSet(), nil)
}

// GetByTopic returns the topic's elements whose tag's replica is not
// currently marked Down.
func (s *State) GetByTopic(topic Topic) []Element {
	s.mustBeNormal()
	return s.store.online(s.Replicas.DownSet(), &topic)
}

// GetByOwner returns every element of the owner regardless of replica
// liveness. It is used for owner cleanup.
func (s *State) GetByOwner(owner Owner) []Element {
	s.mustBeNormal()
	return s.store.match(owner, nil, nil)
}

// GetByOwnerTopicKey returns the owner's elements for (topic, key)
// regardless of replica liveness.
func (s *State) GetByOwnerTopicKey(owner Owner, topic Topic, key Key) []Element {
	s.mustBeNormal()
	return s.store.match(owner, &topic, &key)
}

// HasDelta returns true when the delta buffer covers at least one local
// addition or observed removal since the last reset.
func (s *State) HasDelta() bool {
	s.mustBeNormal()
	return len(s.delta.Cloud) > 0
}

// ResetDelta replaces the delta buffer with a fresh one whose window starts
// and ends at the current local clock, and returns the detached buffer.
func (s *State) ResetDelta() *State {
	s.mustBeNormal()
	old := s.delta
	s.delta = newDelta(s.Replica, s.Context.Project(s.Replica))
	return old
}

// Size returns the weight of a delta-mode state for flush decisions:
// pending additions plus covered tags.
func (s *State) Size() int {
	s.mustBeDelta()
	return len(s.Cloud) + len(s.Values)
}

// ReplicaUp marks the replica Up and returns its elements as joins. The
// store is untouched; liveness transitions never mutate elements.
func (s *State) ReplicaUp(r peers.Replica) []Element {
	s.mustBeNormal()
	s.Replicas.SetUp(r)
	return s.store.byReplica(r)
}

// ReplicaDown marks the replica Down and returns its elements as leaves.
func (s *State) ReplicaDown(r peers.Replica) []Element {
	s.mustBeNormal()
	s.Replicas.SetDown(r)
	return s.store.byReplica(r)
}

// RemoveDownReplica hard-evicts a replica: its elements are deleted, its
// entry is dropped from the context and the liveness map, and its tags are
// purged from the cloud and the delta buffer, including the delta range.
func (s *State) RemoveDownReplica(r peers.Replica) []Element {
	s.mustBeNormal()

	removed := s.store.byReplica(r)
	for _, el := range removed {
		s.store.removeTag(el.Tag)
	}

	delete(s.Context, r)
	s.Replicas.Remove(r)

	for tag := range s.Cloud {
		if tag.Replica == r {
			s.Cloud.remove(tag)
		}
	}

	for tag := range s.delta.Cloud {
		if tag.Replica == r {
			s.delta.Cloud.remove(tag)
			delete(s.delta.Values, tag)
		}
	}
	delete(s.delta.Range.Start, r)
	delete(s.delta.Range.End, r)

	return removed
}

// Extract flattens the value store into a tag-keyed map and returns it
// bundled with the causal summary as a Snapshot. The delta buffer is
// detached so callers never transitively transmit it.
func (s *State) Extract() *Snapshot {
	s.mustBeNormal()

	values := make(map[Tag]Payload, s.store.len())
	for _, el := range s.store.all() {
		values[el.Tag] = el.Payload()
	}

	return &Snapshot{
		Replica: s.Replica,
		Context: s.Context.Copy(),
		Cloud:   s.Cloud.copy(),
		Values:  values,
	}
}

// Release drops the value store's underlying storage. The state must not be
// used afterwards.
func (s *State) Release() {
	if s.store != nil {
		s.store.release()
		s.store = nil
	}
	s.delta = nil
}

// compact absorbs contiguous runs of cloud tags into the context. Folding
// over the sorted tags, a tag extending its replica's contiguous prefix
// advances the context and leaves the cloud; a tag already covered is
// dropped; anything else stays. Compaction never changes the set of covered
// tags, only their representation.
func (s *State) compact() {
	for _, tag := range s.Cloud.sorted() {
		switch {
		case s.Context[tag.Replica] >= tag.Clock:
			s.Cloud.remove(tag)
		case s.Context[tag.Replica] == tag.Clock-1:
			s.Context[tag.Replica] = tag.Clock
			s.Cloud.remove(tag)
		}
	}
}

func (s *State) mustBeNormal() {
	if s.Mode != Normal {
		panic("presence/state: operation requires a normal-mode state")
	}
}

func (s *State) mustBeDelta() {
	if s.Mode != Delta {
		panic("presence/state: operation requires a delta-mode state")
	}
}
