package state

import (
	"bytes"
	"reflect"
	"testing"
)

func TestSnapshotWireRoundTrip(t *testing.T) {
	s := New("r1")
	s.Join("P1", "lobby", "alice", Meta{"status": "idle"})
	s.Join("P2", "game", "bob", Meta{"score": "12"})
	s.Leave("P1", "lobby", "alice")

	snap := s.Extract()

	raw, err := snap.Marshal()
	if err != nil {
		t.Fatalf("Error marshalling Snapshot: %s", err)
	}

	decoded := new(Snapshot)
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatalf("Error unmarshalling Snapshot: %s", err)
	}

	if decoded.Replica != snap.Replica {
		t.Fatalf("Replica does not match. Expected %v, got %v", snap.Replica, decoded.Replica)
	}
	if !reflect.DeepEqual(decoded.Context, snap.Context) {
		t.Fatalf("Context does not match. Expected %v, got %v", snap.Context, decoded.Context)
	}
	if !reflect.DeepEqual(decoded.Cloud, snap.Cloud) {
		t.Fatalf("Cloud does not match. Expected %v, got %v", snap.Cloud, decoded.Cloud)
	}
	if !reflect.DeepEqual(decoded.Values, snap.Values) {
		t.Fatalf("Values do not match. Expected %v, got %v", snap.Values, decoded.Values)
	}

	//merging the decoded snapshot is indistinguishable from merging the
	//original
	viaOriginal := New("r2")
	viaOriginal.Merge(snap)

	viaWire := New("r2")
	viaWire.Merge(decoded)

	if !reflect.DeepEqual(viaWire.OnlineList(), viaOriginal.OnlineList()) {
		t.Fatalf("wire round-trip changed merge result: %v vs %v", viaWire.OnlineList(), viaOriginal.OnlineList())
	}
	if !reflect.DeepEqual(viaWire.Context, viaOriginal.Context) {
		t.Fatalf("wire round-trip changed context: %v vs %v", viaWire.Context, viaOriginal.Context)
	}
}

func TestDeltaWireRoundTrip(t *testing.T) {
	s := New("r1")
	s.Join("P1", "lobby", "alice", Meta{"status": "idle"})
	s.Join("P1", "lobby", "bob", nil)
	s.Leave("P1", "lobby", "alice")

	d := s.ResetDelta()

	raw, err := d.Marshal()
	if err != nil {
		t.Fatalf("Error marshalling delta: %s", err)
	}

	decoded, err := UnmarshalDelta(raw)
	if err != nil {
		t.Fatalf("Error unmarshalling delta: %s", err)
	}

	if decoded.Mode != Delta {
		t.Fatalf("Mode does not match. Expected Delta, got %v", decoded.Mode)
	}
	if decoded.Replica != d.Replica {
		t.Fatalf("Replica does not match. Expected %v, got %v", d.Replica, decoded.Replica)
	}
	if !reflect.DeepEqual(decoded.Cloud, d.Cloud) {
		t.Fatalf("Cloud does not match. Expected %v, got %v", d.Cloud, decoded.Cloud)
	}
	if !reflect.DeepEqual(decoded.Range, d.Range) {
		t.Fatalf("Range does not match. Expected %v, got %v", d.Range, decoded.Range)
	}

	//the contiguity window survives the wire, so batching still works
	s.Join("P2", "game", "carol", nil)
	next := s.ResetDelta()

	if _, err := MergeDeltas(decoded, next); err != nil {
		t.Fatalf("decoded delta should stitch onto the next window: %s", err)
	}

	//and merging the decoded delta matches merging the original
	viaOriginal := New("r2")
	viaOriginal.MergeDelta(d)

	viaWire := New("r2")
	viaWire.MergeDelta(decoded)

	if !reflect.DeepEqual(viaWire.OnlineList(), viaOriginal.OnlineList()) {
		t.Fatalf("wire round-trip changed merge result: %v vs %v", viaWire.OnlineList(), viaOriginal.OnlineList())
	}
}

// Two replicas encoding the same logical snapshot produce identical bytes.
func TestSnapshotCanonicalEncoding(t *testing.T) {
	build := func() *Snapshot {
		s := New("r1")
		s.Join("P1", "lobby", "alice", Meta{"a": "1", "b": "2"})
		s.Join("P2", "game", "bob", nil)
		return s.Extract()
	}

	raw1, err := build().Marshal()
	if err != nil {
		t.Fatalf("Error marshalling Snapshot: %s", err)
	}
	raw2, err := build().Marshal()
	if err != nil {
		t.Fatalf("Error marshalling Snapshot: %s", err)
	}

	if !bytes.Equal(raw1, raw2) {
		t.Fatalf("encoding is not canonical:\n%s\n%s", raw1, raw2)
	}
}

func TestMarshalNormalStatePanics(t *testing.T) {
	s := New("r1")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Marshal on a normal-mode state to panic")
		}
	}()

	s.Marshal()
}
