// Package peers defines replica identities and the liveness map that the
// presence engine consults when answering queries.
//
// A replica is a peer that independently adds and removes presence records.
// Replicas are identified by an opaque moniker; the engine only ever compares
// and hashes them. The liveness map records which replicas are currently
// considered Up. It is driven by the surrounding system's failure detector,
// through the engine's ReplicaUp / ReplicaDown transitions, and never by
// merges: receiving state from a replica does not imply it is reachable.
package peers
