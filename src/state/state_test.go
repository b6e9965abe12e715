package state

import (
	"reflect"
	"testing"
)

func TestJoinLeave(t *testing.T) {
	s := New("r1")

	el := s.Join("P", "lobby", "alice", Meta{})

	exp := Element{Owner: "P", Topic: "lobby", Key: "alice", Meta: Meta{}, Tag: Tag{Replica: "r1", Clock: 1}}
	if !reflect.DeepEqual(el, exp) {
		t.Fatalf("Join: expected %v, got %v", exp, el)
	}

	if online := s.OnlineList(); !reflect.DeepEqual(online, []Element{exp}) {
		t.Fatalf("OnlineList: expected %v, got %v", []Element{exp}, online)
	}

	replica, ctx := s.Clocks()
	if replica != "r1" {
		t.Fatalf("Clocks replica: expected r1, got %s", replica)
	}
	if !reflect.DeepEqual(ctx, Context{"r1": 1}) {
		t.Fatalf("Clocks context: expected %v, got %v", Context{"r1": 1}, ctx)
	}

	removed := s.Leave("P", "lobby", "alice")
	if !reflect.DeepEqual(removed, []Element{exp}) {
		t.Fatalf("Leave: expected %v, got %v", []Element{exp}, removed)
	}

	if online := s.OnlineList(); len(online) != 0 {
		t.Fatalf("OnlineList after Leave: expected empty, got %v", online)
	}

	//the removal advances the local clock
	if !reflect.DeepEqual(s.Context, Context{"r1": 2}) {
		t.Fatalf("Context after Leave: expected %v, got %v", Context{"r1": 2}, s.Context)
	}
	if len(s.Cloud) != 0 {
		t.Fatalf("Cloud after Leave: expected empty, got %v", s.Cloud)
	}
}

func TestLeaveOwner(t *testing.T) {
	s := New("r1")
	s.Join("P", "lobby", "alice", nil)
	s.Join("P", "game", "alice", nil)
	s.Join("Q", "lobby", "bob", nil)

	removed := s.LeaveOwner("P")
	if len(removed) != 2 {
		t.Fatalf("LeaveOwner: expected 2 removed, got %d", len(removed))
	}

	online := s.OnlineList()
	if len(online) != 1 || online[0].Key != "bob" {
		t.Fatalf("OnlineList after LeaveOwner: expected only bob, got %v", online)
	}
}

func TestLeaveUnknownIsTotal(t *testing.T) {
	s := New("r1")

	if removed := s.Leave("P", "lobby", "ghost"); len(removed) != 0 {
		t.Fatalf("Leave unknown: expected no removals, got %v", removed)
	}
	if removed := s.LeaveOwner("P"); len(removed) != 0 {
		t.Fatalf("LeaveOwner unknown: expected no removals, got %v", removed)
	}
}

func TestGetByTopic(t *testing.T) {
	s := New("r1")
	s.Join("P", "lobby", "alice", nil)
	s.Join("Q", "game", "bob", nil)

	lobby := s.GetByTopic("lobby")
	if len(lobby) != 1 || lobby[0].Key != "alice" {
		t.Fatalf("GetByTopic lobby: expected only alice, got %v", lobby)
	}

	if empty := s.GetByTopic("unknown"); len(empty) != 0 {
		t.Fatalf("GetByTopic unknown: expected empty, got %v", empty)
	}
}

func TestGetByOwner(t *testing.T) {
	s := New("r1")
	s.Join("P", "lobby", "alice", nil)
	s.Join("P", "game", "alice", nil)
	s.Join("Q", "lobby", "bob", nil)

	els := s.GetByOwner("P")
	if len(els) != 2 {
		t.Fatalf("GetByOwner: expected 2 elements, got %v", els)
	}

	els = s.GetByOwnerTopicKey("P", "game", "alice")
	if len(els) != 1 || els[0].Topic != "game" {
		t.Fatalf("GetByOwnerTopicKey: expected the game element, got %v", els)
	}

	if empty := s.GetByOwner("nobody"); len(empty) != 0 {
		t.Fatalf("GetByOwner unknown: expected empty, got %v", empty)
	}
}

// A second Join with the same (owner, topic, key) but different meta gets a
// fresh tag; both records coexist until one is observed-removed.
func TestRejoinWithNewMeta(t *testing.T) {
	s := New("r1")
	s.Join("P", "lobby", "alice", Meta{"status": "idle"})
	s.Join("P", "lobby", "alice", Meta{"status": "busy"})

	els := s.GetByOwnerTopicKey("P", "lobby", "alice")
	if len(els) != 2 {
		t.Fatalf("expected both records, got %v", els)
	}

	removed := s.Leave("P", "lobby", "alice")
	if len(removed) != 2 {
		t.Fatalf("Leave matches on (owner, topic, key) only: expected 2 removals, got %v", removed)
	}
}

func TestReplicaUpDown(t *testing.T) {
	a := New("r1")
	b := New("r2")
	b.Join("P2", "lobby", "bob", nil)

	a.Merge(b.Extract())

	//flapping is reflected at query time without rewriting the store
	leaves := a.ReplicaDown("r2")
	if len(leaves) != 1 || leaves[0].Key != "bob" {
		t.Fatalf("ReplicaDown: expected bob as leave, got %v", leaves)
	}
	if online := a.OnlineList(); len(online) != 0 {
		t.Fatalf("OnlineList with r2 down: expected empty, got %v", online)
	}
	if byTopic := a.GetByTopic("lobby"); len(byTopic) != 0 {
		t.Fatalf("GetByTopic with r2 down: expected empty, got %v", byTopic)
	}

	joins := a.ReplicaUp("r2")
	if len(joins) != 1 || joins[0].Key != "bob" {
		t.Fatalf("ReplicaUp: expected bob as join, got %v", joins)
	}
	if online := a.OnlineList(); len(online) != 1 {
		t.Fatalf("OnlineList with r2 back up: expected 1 element, got %v", online)
	}
}

func TestRemoveDownReplica(t *testing.T) {
	a := New("r1")
	a.Join("P1", "lobby", "alice", nil)

	b := New("r2")
	b.Join("P2", "lobby", "bob", nil)

	a.Merge(b.Extract())
	a.ReplicaDown("r2")

	removed := a.RemoveDownReplica("r2")
	if len(removed) != 1 || removed[0].Key != "bob" {
		t.Fatalf("RemoveDownReplica: expected bob removed, got %v", removed)
	}

	if _, ok := a.Context["r2"]; ok {
		t.Fatalf("Context still holds evicted replica: %v", a.Context)
	}
	if a.Replicas.Contains("r2") {
		t.Fatalf("Replicas still holds evicted replica")
	}
	for tag := range a.Cloud {
		if tag.Replica == "r2" {
			t.Fatalf("Cloud still holds evicted replica's tag %v", tag)
		}
	}
	for tag := range a.Delta().Cloud {
		if tag.Replica == "r2" {
			t.Fatalf("Delta cloud still holds evicted replica's tag %v", tag)
		}
	}

	online := a.OnlineList()
	if len(online) != 1 || online[0].Key != "alice" {
		t.Fatalf("OnlineList after eviction: expected only alice, got %v", online)
	}
}

// Local clock never decreases and has no gaps across any operation.
func TestLocalClockMonotonic(t *testing.T) {
	s := New("r1")

	last := Clock(0)
	check := func(op string) {
		cur := s.Clock()
		if cur < last {
			t.Fatalf("%s: clock went backwards from %d to %d", op, last, cur)
		}
		last = cur
	}

	s.Join("P", "lobby", "alice", nil)
	check("Join")
	s.Leave("P", "lobby", "alice")
	check("Leave")
	s.Join("P", "lobby", "alice", nil)
	check("Join")

	b := New("r2")
	b.Join("P2", "lobby", "bob", nil)
	s.Merge(b.Extract())
	check("Merge")

	s.ResetDelta()
	check("ResetDelta")

	if s.Clock() != 3 {
		t.Fatalf("expected local clock 3, got %d", s.Clock())
	}
}

func TestMutatingDeltaPanics(t *testing.T) {
	s := New("r1")
	d := s.Delta()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Join on a delta-mode state to panic")
		}
	}()

	d.Join("P", "lobby", "alice", nil)
}

func TestRelease(t *testing.T) {
	s := New("r1")
	s.Join("P", "lobby", "alice", nil)
	s.Release()

	if s.store != nil || s.delta != nil {
		t.Fatalf("Release: expected store and delta to be dropped")
	}
}
