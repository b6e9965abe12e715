package state

import "github.com/mosaicnetworks/presence/src/peers"

// Snapshot is a full remote state prepared for transmission: the causal
// summary plus the value store flattened by tag. It is produced by Extract
// and consumed by Merge.
type Snapshot struct {
	Replica peers.Replica   `json:"replica"`
	Context Context         `json:"context"`
	Cloud   tagSet          `json:"cloud"`
	Values  map[Tag]Payload `json:"values"`
}

// remoteView is the common shape of the two inbound payloads: a full
// snapshot or a delta. in reports whether the payload covers the tag.
type remoteView struct {
	context Context
	cloud   tagSet
	values  map[Tag]Payload
}

func (rv remoteView) in(tag Tag) bool {
	return rv.context[tag.Replica] >= tag.Clock || rv.cloud.contains(tag)
}

// Merge reconciles a full remote snapshot into the local state and returns
// the elements that became live and the elements that were dropped because
// the remote observed their removal.
func (s *State) Merge(remote *Snapshot) (joins, leaves []Element) {
	s.mustBeNormal()
	return s.merge(remoteView{
		context: remote.Context,
		cloud:   remote.Cloud,
		values:  remote.Values,
	})
}

// MergeDelta reconciles a remote delta into the local state. The delta's
// cloud covers adds and observed removals alike, so a tag in the cloud but
// absent from the values is a removal.
func (s *State) MergeDelta(remote *State) (joins, leaves []Element) {
	s.mustBeNormal()
	remote.mustBeDelta()
	return s.merge(remoteView{
		context: remote.Context,
		cloud:   remote.Cloud,
		values:  remote.Values,
	})
}

func (s *State) merge(remote remoteView) (joins, leaves []Element) {
	// New elements are tags the remote carries that this state has never
	// covered.
	joins = []Element{}
	for tag, payload := range remote.values {
		if !s.in(tag) {
			joins = append(joins, elementOf(tag, payload))
		}
	}

	// Local elements whose tag the remote covers without carrying the value
	// have been observed-removed there.
	leaves = []Element{}
	for _, el := range s.store.all() {
		if remote.in(el.Tag) {
			if _, ok := remote.values[el.Tag]; !ok {
				leaves = append(leaves, el)
			}
		}
	}

	for _, el := range leaves {
		s.store.removeTag(el.Tag)
		s.Cloud.remove(el.Tag)
		delete(s.delta.Values, el.Tag)
		s.delta.Cloud.add(el.Tag)
	}

	for _, el := range joins {
		s.store.insert(el)
	}

	for tag := range remote.cloud {
		s.Cloud.add(tag)
	}
	for _, el := range leaves {
		s.Cloud.remove(el.Tag)
	}

	s.Context = Upperbound(s.Context, remote.context)
	s.compact()

	return sortElements(joins), sortElements(leaves)
}

// MergeDeltas concatenates two delta buffers covering adjacent or
// overlapping clock windows into one. It fails with a NotContiguousError
// when the local window does not reach the remote window's start for every
// replica the remote covers, since stitching them would leave an observable
// gap in the history.
func MergeDeltas(local, remote *State) (*State, error) {
	local.mustBeDelta()
	remote.mustBeDelta()

	for r, start := range remote.Range.Start {
		if local.Range.End[r] < start {
			return nil, NotContiguousError{Replica: r, End: local.Range.End[r], Start: start}
		}
	}

	merged := newDelta(local.Replica, NewContext())
	merged.Range = Range{
		Start: Lowerbound(local.Range.Start, remote.Range.Start),
		End:   Upperbound(local.Range.End, remote.Range.End),
	}

	for tag := range local.Cloud {
		merged.Cloud.add(tag)
	}
	for tag := range remote.Cloud {
		merged.Cloud.add(tag)
	}

	// Keep local values the remote still carries or never covered; a value
	// the remote covers without carrying has been observed-removed.
	for tag, payload := range local.Values {
		if _, ok := remote.Values[tag]; ok || !remote.in(tag) {
			merged.Values[tag] = payload
		}
	}
	// Add remote values this delta has never covered.
	for tag, payload := range remote.Values {
		if _, ok := merged.Values[tag]; !ok && !local.in(tag) {
			merged.Values[tag] = payload
		}
	}

	return merged, nil
}
