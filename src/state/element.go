package state

// Owner is the local process or connection identity that a membership record
// belongs to. The engine treats it as an opaque value.
type Owner string

// Topic is the name of a presence topic.
type Topic string

// Key is the opaque identifier of a membership record within a topic.
type Key string

// Meta is the opaque attribute map attached to a membership record. It is
// carried verbatim and never consulted when matching removals.
type Meta map[string]string

// Copy returns a copy of the Meta map. A nil Meta copies to nil.
func (m Meta) Copy() Meta {
	if m == nil {
		return nil
	}
	res := make(Meta, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

// Payload is the value half of an element, keyed by Tag in extracted maps
// and delta buffers.
type Payload struct {
	Owner Owner `json:"owner"`
	Topic Topic `json:"topic"`
	Key   Key   `json:"key"`
	Meta  Meta  `json:"meta"`
}

// Element is one live membership record together with the tag of the add
// event that produced it.
type Element struct {
	Owner Owner `json:"owner"`
	Topic Topic `json:"topic"`
	Key   Key   `json:"key"`
	Meta  Meta  `json:"meta"`
	Tag   Tag   `json:"tag"`
}

// Payload strips the element down to its value half.
func (e Element) Payload() Payload {
	return Payload{
		Owner: e.Owner,
		Topic: e.Topic,
		Key:   e.Key,
		Meta:  e.Meta,
	}
}

func elementOf(tag Tag, p Payload) Element {
	return Element{
		Owner: p.Owner,
		Topic: p.Topic,
		Key:   p.Key,
		Meta:  p.Meta,
		Tag:   tag,
	}
}
