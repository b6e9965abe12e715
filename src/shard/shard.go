package shard

import (
	"sync"

	"github.com/mosaicnetworks/presence/src/config"
	"github.com/mosaicnetworks/presence/src/peers"
	"github.com/mosaicnetworks/presence/src/state"
	"github.com/sirupsen/logrus"
)

// Shard owns one replica state and serialises every operation on it. All
// methods are safe for concurrent use; the underlying state never is.
type Shard struct {
	mtx sync.Mutex

	// conf holds the shard's configuration; the moniker doubles as the
	// local replica id.
	conf *config.Config

	state *state.State

	logger *logrus.Entry
}

// NewShard creates a Shard with a fresh replica state whose identity is the
// configured moniker.
func NewShard(conf *config.Config, logger *logrus.Entry) *Shard {
	if logger == nil {
		logger = conf.Logger()
	}

	replica := peers.Replica(conf.Moniker)

	shard := &Shard{
		conf:   conf,
		state:  state.New(replica),
		logger: logger,
	}

	logger.WithField("replica", replica).Debug("NewShard")

	return shard
}

// Replica returns the local replica id.
func (s *Shard) Replica() peers.Replica {
	return s.state.Replica
}

// Clocks returns the local replica id and a copy of the causal context.
func (s *Shard) Clocks() (peers.Replica, state.Context) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.Clocks()
}

// Join records a presence on the topic and returns the new element.
func (s *Shard) Join(owner state.Owner, topic state.Topic, key state.Key, meta state.Meta) state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	el := s.state.Join(owner, topic, key, meta)

	s.logger.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
		"tag":   el.Tag,
	}).Debug("Join")

	return el
}

// Leave removes the owner's presence for (topic, key) and returns the
// removed elements.
func (s *Shard) Leave(owner state.Owner, topic state.Topic, key state.Key) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	removed := s.state.Leave(owner, topic, key)

	s.logger.WithFields(logrus.Fields{
		"topic":   topic,
		"key":     key,
		"removed": len(removed),
	}).Debug("Leave")

	return removed
}

// LeaveOwner removes every presence of the owner, across all topics. Hosts
// call this when a connection terminates.
func (s *Shard) LeaveOwner(owner state.Owner) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	removed := s.state.LeaveOwner(owner)

	s.logger.WithField("removed", len(removed)).Debug("LeaveOwner")

	return removed
}

// OnlineList returns every element whose replica is not known to be down.
func (s *Shard) OnlineList() []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.OnlineList()
}

// GetByTopic returns the topic's elements whose replica is not known to be
// down.
func (s *Shard) GetByTopic(topic state.Topic) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.GetByTopic(topic)
}

// GetByOwner returns every element of the owner regardless of liveness.
func (s *Shard) GetByOwner(owner state.Owner) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.GetByOwner(owner)
}

// GetByOwnerTopicKey returns the owner's elements for (topic, key)
// regardless of liveness.
func (s *Shard) GetByOwnerTopicKey(owner state.Owner, topic state.Topic, key state.Key) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.GetByOwnerTopicKey(owner, topic, key)
}

// Snapshot encodes the full local state for a full-state gossip exchange.
func (s *Shard) Snapshot() ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.Extract().Marshal()
}

// HasDelta returns true when local changes are pending since the last
// flush.
func (s *Shard) HasDelta() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.HasDelta()
}

// DeltaFull returns true when the pending delta's weight has reached the
// configured flush threshold.
func (s *Shard) DeltaFull() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state.HasDelta() && s.state.Delta().Size() >= s.conf.MaxDeltaSize
}

// FlushDelta encodes and resets the pending delta. It returns nil bytes
// when there is nothing to flush.
func (s *Shard) FlushDelta() ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.state.HasDelta() {
		return nil, nil
	}

	delta := s.state.ResetDelta()

	s.logger.WithField("size", delta.Size()).Debug("FlushDelta")

	return delta.Marshal()
}

// HandleFull decodes a full-state envelope and merges it. The origin
// replica is marked Up first if it was unknown; merging alone never touches
// the liveness map.
func (s *Shard) HandleFull(payload []byte) (joins, leaves []state.Element, err error) {
	snap := new(state.Snapshot)
	if err := snap.Unmarshal(payload); err != nil {
		return nil, nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.state.Replicas.Contains(snap.Replica) {
		s.state.ReplicaUp(snap.Replica)
	}

	joins, leaves = s.state.Merge(snap)

	s.logger.WithFields(logrus.Fields{
		"from":   snap.Replica,
		"joins":  len(joins),
		"leaves": len(leaves),
	}).Debug("HandleFull")

	return joins, leaves, nil
}

// HandleDelta decodes a delta envelope and merges it.
func (s *Shard) HandleDelta(payload []byte) (joins, leaves []state.Element, err error) {
	delta, err := state.UnmarshalDelta(payload)
	if err != nil {
		return nil, nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.state.Replicas.Contains(delta.Replica) {
		s.state.ReplicaUp(delta.Replica)
	}

	joins, leaves = s.state.MergeDelta(delta)

	s.logger.WithFields(logrus.Fields{
		"from":   delta.Replica,
		"joins":  len(joins),
		"leaves": len(leaves),
	}).Debug("HandleDelta")

	return joins, leaves, nil
}

// ReplicaUp marks a replica reachable and returns its elements as joins.
func (s *Shard) ReplicaUp(r peers.Replica) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	joins := s.state.ReplicaUp(r)

	s.logger.WithFields(logrus.Fields{
		"replica": r,
		"joins":   len(joins),
	}).Debug("ReplicaUp")

	return joins
}

// ReplicaDown marks a replica unreachable and returns its elements as
// leaves.
func (s *Shard) ReplicaDown(r peers.Replica) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	leaves := s.state.ReplicaDown(r)

	s.logger.WithFields(logrus.Fields{
		"replica": r,
		"leaves":  len(leaves),
	}).Debug("ReplicaDown")

	return leaves
}

// RemoveDownReplica permanently evicts a replica and its elements.
func (s *Shard) RemoveDownReplica(r peers.Replica) []state.Element {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	removed := s.state.RemoveDownReplica(r)

	s.logger.WithFields(logrus.Fields{
		"replica": r,
		"removed": len(removed),
	}).Debug("RemoveDownReplica")

	return removed
}

// Shutdown releases the state's storage. The shard must not be used
// afterwards.
func (s *Shard) Shutdown() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Release()

	s.logger.Debug("Shutdown")
}
