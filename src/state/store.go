package state

import (
	"sort"

	"github.com/mosaicnetworks/presence/src/peers"
)

// storeKey groups the elements of one owner on one topic, which is the
// access pattern of removals.
type storeKey struct {
	Owner Owner
	Topic Topic
}

// entry is the stored half of an element under its storeKey.
type entry struct {
	Key  Key
	Meta Meta
	Tag  Tag
}

// store is the indexed container of live elements. The primary map is a
// multimap from (owner, topic) to entries; the secondary index locates every
// element by the replica of its tag, which accelerates liveness queries and
// replica eviction.
type store struct {
	elements map[storeKey][]entry
	byTag    map[peers.Replica]map[Tag]storeKey
}

func newStore() *store {
	return &store{
		elements: make(map[storeKey][]entry),
		byTag:    make(map[peers.Replica]map[Tag]storeKey),
	}
}

func (st *store) insert(el Element) {
	k := storeKey{Owner: el.Owner, Topic: el.Topic}
	st.elements[k] = append(st.elements[k], entry{Key: el.Key, Meta: el.Meta, Tag: el.Tag})

	tags, ok := st.byTag[el.Tag.Replica]
	if !ok {
		tags = make(map[Tag]storeKey)
		st.byTag[el.Tag.Replica] = tags
	}
	tags[el.Tag] = k
}

// removeTag deletes the element identified by tag and returns it. The second
// return value is false when the tag is not in the store.
func (st *store) removeTag(tag Tag) (Element, bool) {
	tags, ok := st.byTag[tag.Replica]
	if !ok {
		return Element{}, false
	}
	k, ok := tags[tag]
	if !ok {
		return Element{}, false
	}

	entries := st.elements[k]
	for i, e := range entries {
		if e.Tag == tag {
			st.elements[k] = append(entries[:i], entries[i+1:]...)
			if len(st.elements[k]) == 0 {
				delete(st.elements, k)
			}
			delete(tags, tag)
			if len(tags) == 0 {
				delete(st.byTag, tag.Replica)
			}
			return Element{Owner: k.Owner, Topic: k.Topic, Key: e.Key, Meta: e.Meta, Tag: e.Tag}, true
		}
	}

	return Element{}, false
}

// removeMatch deletes every element of the owner, optionally restricted to
// one (topic, key), and returns the removed elements.
func (st *store) removeMatch(owner Owner, topic *Topic, key *Key) []Element {
	removed := st.match(owner, topic, key)
	for _, el := range removed {
		st.removeTag(el.Tag)
	}
	return removed
}

// match returns every element of the owner, optionally restricted to one
// (topic, key).
func (st *store) match(owner Owner, topic *Topic, key *Key) []Element {
	res := []Element{}
	for k, entries := range st.elements {
		if k.Owner != owner {
			continue
		}
		if topic != nil && k.Topic != *topic {
			continue
		}
		for _, e := range entries {
			if key != nil && e.Key != *key {
				continue
			}
			res = append(res, Element{Owner: k.Owner, Topic: k.Topic, Key: e.Key, Meta: e.Meta, Tag: e.Tag})
		}
	}
	return sortElements(res)
}

// byReplica returns every element whose tag was produced by the replica.
func (st *store) byReplica(r peers.Replica) []Element {
	res := []Element{}
	for tag, k := range st.byTag[r] {
		if el, ok := st.get(k, tag); ok {
			res = append(res, el)
		}
	}
	return sortElements(res)
}

// online returns every element whose tag's replica is not in the down set,
// optionally restricted to one topic.
func (st *store) online(down map[peers.Replica]struct{}, topic *Topic) []Element {
	res := []Element{}
	for r, tags := range st.byTag {
		if _, isDown := down[r]; isDown {
			continue
		}
		for tag, k := range tags {
			if topic != nil && k.Topic != *topic {
				continue
			}
			if el, ok := st.get(k, tag); ok {
				res = append(res, el)
			}
		}
	}
	return sortElements(res)
}

func (st *store) get(k storeKey, tag Tag) (Element, bool) {
	for _, e := range st.elements[k] {
		if e.Tag == tag {
			return Element{Owner: k.Owner, Topic: k.Topic, Key: e.Key, Meta: e.Meta, Tag: e.Tag}, true
		}
	}
	return Element{}, false
}

// all returns every element in the store.
func (st *store) all() []Element {
	res := []Element{}
	for k, entries := range st.elements {
		for _, e := range entries {
			res = append(res, Element{Owner: k.Owner, Topic: k.Topic, Key: e.Key, Meta: e.Meta, Tag: e.Tag})
		}
	}
	return sortElements(res)
}

func (st *store) len() int {
	n := 0
	for _, entries := range st.elements {
		n += len(entries)
	}
	return n
}

// release drops the underlying maps so the storage can be reclaimed
// deterministically when the state is destroyed.
func (st *store) release() {
	st.elements = nil
	st.byTag = nil
}

// sortElements orders elements by (topic, owner, key, tag) so that query
// results and merge diffs are deterministic.
func sortElements(els []Element) []Element {
	sort.Slice(els, func(i, j int) bool {
		a, b := els[i], els[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Tag.Replica != b.Tag.Replica {
			return a.Tag.Replica < b.Tag.Replica
		}
		return a.Tag.Clock < b.Tag.Clock
	})
	return els
}
