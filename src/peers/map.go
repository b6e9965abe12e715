package peers

import "sort"

// Map tracks the liveness status of every replica known to a presence state.
type Map struct {
	Statuses map[Replica]Status
}

// NewMap creates a Map containing only the given replicas, all marked Up.
func NewMap(replicas ...Replica) *Map {
	m := &Map{
		Statuses: make(map[Replica]Status),
	}
	for _, r := range replicas {
		m.Statuses[r] = Up
	}
	return m
}

// Copy returns a deep copy of the Map.
func (m *Map) Copy() *Map {
	statuses := make(map[Replica]Status, len(m.Statuses))
	for r, s := range m.Statuses {
		statuses[r] = s
	}
	return &Map{Statuses: statuses}
}

// SetUp marks the replica Up, inserting it if it was unknown.
func (m *Map) SetUp(r Replica) {
	m.Statuses[r] = Up
}

// SetDown marks the replica Down, inserting it if it was unknown.
func (m *Map) SetDown(r Replica) {
	m.Statuses[r] = Down
}

// Remove forgets the replica entirely.
func (m *Map) Remove(r Replica) {
	delete(m.Statuses, r)
}

// IsUp returns true if the replica is known and currently Up.
func (m *Map) IsUp(r Replica) bool {
	return m.Statuses[r] == Up
}

// Contains returns true if the replica is known, whatever its status.
func (m *Map) Contains(r Replica) bool {
	_, ok := m.Statuses[r]
	return ok
}

// IsDown returns true if the replica is known and currently Down. An
// unknown replica is not Down: elements merged in from a replica the
// failure detector has never reported on stay visible.
func (m *Map) IsDown(r Replica) bool {
	s, ok := m.Statuses[r]
	return ok && s == Down
}

// UpSet returns the set of replicas currently marked Up.
func (m *Map) UpSet() map[Replica]struct{} {
	res := make(map[Replica]struct{})
	for r, s := range m.Statuses {
		if s == Up {
			res[r] = struct{}{}
		}
	}
	return res
}

// DownSet returns the set of replicas currently marked Down.
func (m *Map) DownSet() map[Replica]struct{} {
	res := make(map[Replica]struct{})
	for r, s := range m.Statuses {
		if s == Down {
			res[r] = struct{}{}
		}
	}
	return res
}

// Sorted returns all known replicas in lexicographic order.
func (m *Map) Sorted() []Replica {
	res := make([]Replica, 0, len(m.Statuses))
	for r := range m.Statuses {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Len returns the number of known replicas.
func (m *Map) Len() int {
	return len(m.Statuses)
}
