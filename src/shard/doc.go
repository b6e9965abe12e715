// Package shard wraps one replica state behind a mutex and a logger.
//
// The replicated state itself is single-threaded by design; a Shard is the
// owner the engine expects: it serialises every operation, translates inbound
// gossip envelopes into merges, and hands the resulting join/leave diffs back
// to the host for dispatch. Gossip scheduling, transport and user-facing
// callbacks remain the host's concern.
package shard
