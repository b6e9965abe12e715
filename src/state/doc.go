// Package state implements the replicated set at the heart of the presence
// tracker: an Observed-Remove Set Without Tombstones (ORSWOT) whose members
// are (owner, topic, key, meta) records tagged with the causal clock of the
// replica that inserted them.
//
// Removal is represented by causal knowledge instead of tombstones. Each
// replica maintains a context, mapping every known replica to the largest
// contiguous clock observed from it, and a cloud of tags that are known but
// not yet contiguous with the context. A tag is "in" a state when the context
// covers it or the cloud contains it. An element whose tag is in a remote
// state but absent from the remote's values has been observed-removed there,
// and merging drops it locally.
//
// Between full-state exchanges, replicas gossip deltas: reduced states that
// accumulate local additions and observed removals since the last reset,
// together with a range of contexts bracketing the clock window they cover.
// Contiguous deltas can be concatenated with MergeDeltas to batch several
// gossip rounds into one envelope.
//
// A State is not safe for concurrent use. The surrounding system owns one
// State per presence shard and serialises operations on it.
package state
