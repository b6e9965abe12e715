package state

import (
	"bytes"

	"github.com/mosaicnetworks/presence/src/peers"
	"github.com/ugorji/go/codec"
)

// Gossip payloads travel as canonical JSON so that two replicas encoding the
// same logical state produce identical bytes. Clouds and value maps are
// flattened to sorted slices on the wire because their in-memory form is
// keyed by Tag.

type wireSnapshot struct {
	Replica peers.Replica `json:"replica"`
	Context Context       `json:"context"`
	Cloud   []Tag         `json:"cloud"`
	Values  []Element     `json:"values"`
}

type wireRange struct {
	Start Context `json:"start"`
	End   Context `json:"end"`
}

type wireDelta struct {
	Replica peers.Replica `json:"replica"`
	Cloud   []Tag         `json:"cloud"`
	Values  []Element     `json:"values"`
	Range   wireRange     `json:"range"`
}

func jsonHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

func flattenValues(values map[Tag]Payload) []Element {
	res := make([]Element, 0, len(values))
	for tag, payload := range values {
		res = append(res, elementOf(tag, payload))
	}
	return sortElements(res)
}

// Marshal encodes the Snapshot for transmission.
func (snap *Snapshot) Marshal() ([]byte, error) {
	w := wireSnapshot{
		Replica: snap.Replica,
		Context: snap.Context,
		Cloud:   snap.Cloud.sorted(),
		Values:  flattenValues(snap.Values),
	}

	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, jsonHandle())

	if err := enc.Encode(w); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a Snapshot from its wire form.
func (snap *Snapshot) Unmarshal(data []byte) error {
	w := wireSnapshot{}

	b := bytes.NewBuffer(data)
	dec := codec.NewDecoder(b, jsonHandle())

	if err := dec.Decode(&w); err != nil {
		return err
	}

	snap.Replica = w.Replica
	snap.Context = w.Context
	if snap.Context == nil {
		snap.Context = NewContext()
	}
	snap.Cloud = newTagSet()
	for _, t := range w.Cloud {
		snap.Cloud.add(t)
	}
	snap.Values = make(map[Tag]Payload, len(w.Values))
	for _, el := range w.Values {
		snap.Values[el.Tag] = el.Payload()
	}

	return nil
}

// Marshal encodes a delta-mode state for transmission. The range travels
// with the delta so receivers can stitch contiguous windows.
func (s *State) Marshal() ([]byte, error) {
	s.mustBeDelta()

	w := wireDelta{
		Replica: s.Replica,
		Cloud:   s.Cloud.sorted(),
		Values:  flattenValues(s.Values),
		Range:   wireRange{Start: s.Range.Start, End: s.Range.End},
	}

	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, jsonHandle())

	if err := enc.Encode(w); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// UnmarshalDelta decodes a delta-mode state from its wire form.
func UnmarshalDelta(data []byte) (*State, error) {
	w := wireDelta{}

	b := bytes.NewBuffer(data)
	dec := codec.NewDecoder(b, jsonHandle())

	if err := dec.Decode(&w); err != nil {
		return nil, err
	}

	d := newDelta(w.Replica, NewContext())
	for _, t := range w.Cloud {
		d.Cloud.add(t)
	}
	for _, el := range w.Values {
		d.Values[el.Tag] = el.Payload()
	}
	d.Range = Range{Start: w.Range.Start, End: w.Range.End}
	if d.Range.Start == nil {
		d.Range.Start = NewContext()
	}
	if d.Range.End == nil {
		d.Range.End = NewContext()
	}

	return d, nil
}
