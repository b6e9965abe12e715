package state

import "github.com/mosaicnetworks/presence/src/peers"

// Context maps every known replica to the largest contiguous clock observed
// from it: every tag (r, 1..ctx[r]) is either still present or has been
// observed-removed.
type Context map[peers.Replica]Clock

// NewContext returns an empty Context.
func NewContext() Context {
	return make(Context)
}

// Copy returns a deep copy of the Context.
func (c Context) Copy() Context {
	res := make(Context, len(c))
	for r, clock := range c {
		res[r] = clock
	}
	return res
}

// Project returns the Context restricted to a single replica. Unknown
// replicas project to {r: 0}.
func (c Context) Project(r peers.Replica) Context {
	return Context{r: c[r]}
}

// Upperbound returns the pairwise max of two Contexts over the union of
// their replicas.
func Upperbound(a, b Context) Context {
	res := a.Copy()
	for r, clock := range b {
		if clock > res[r] {
			res[r] = clock
		}
	}
	return res
}

// Lowerbound returns the pairwise min of two Contexts over the intersection
// of their replicas; a replica missing on either side is absent from the
// result.
func Lowerbound(a, b Context) Context {
	res := make(Context)
	for r, ca := range a {
		if cb, ok := b[r]; ok {
			if cb < ca {
				res[r] = cb
			} else {
				res[r] = ca
			}
		}
	}
	return res
}

// DominatesOrEqual returns true if, for every replica present in other, the
// receiver's clock is at least as large. Replicas absent from other are
// vacuously satisfied.
func (c Context) DominatesOrEqual(other Context) bool {
	for r, clock := range other {
		if c[r] < clock {
			return false
		}
	}
	return true
}
