package ecs

// EntityID is an opaque, stable identifier for an entity. Relations between
// entities are always expressed as IDs, never as embedded ownership, because
// entities are created and destroyed by systems that know nothing about each
// other.
type EntityID uint64

// None is the zero EntityID and never refers to a live entity.
const None EntityID = 0

// Registry hands out entity identifiers. IDs are never reused within a run.
type Registry struct {
	next EntityID
}

func NewRegistry() *Registry {
	return &Registry{next: 1}
}

// Create allocates a fresh EntityID.
func (r *Registry) Create() EntityID {
	id := r.next
	r.next++
	return id
}

// Pair is an unordered pair of entities, normalized so A < B. Broad-phase
// candidate pairs use this to report each pair at most once.
type Pair struct {
	A EntityID
	B EntityID
}

// MakePair normalizes the pair ordering.
func MakePair(a, b EntityID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}
