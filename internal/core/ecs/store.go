package ecs

// Store is a dense component store keyed by EntityID. Values live in a slice
// for deterministic iteration; removal swap-deletes, so iteration order is a
// pure function of the operation history, which keeps frame pipelines
// reproducible.
type Store[T any] struct {
	index  map[EntityID]int
	ids    []EntityID
	values []T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{index: make(map[EntityID]int)}
}

// Set inserts or replaces the component for id.
func (s *Store[T]) Set(id EntityID, v T) {
	if i, ok := s.index[id]; ok {
		s.values[i] = v
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.values = append(s.values, v)
}

// Get returns the component for id.
func (s *Store[T]) Get(id EntityID) (T, bool) {
	if i, ok := s.index[id]; ok {
		return s.values[i], true
	}
	var zero T
	return zero, false
}

// Ref returns a pointer into the store for in-place mutation. The pointer is
// invalidated by the next Set or Remove.
func (s *Store[T]) Ref(id EntityID) (*T, bool) {
	if i, ok := s.index[id]; ok {
		return &s.values[i], true
	}
	return nil, false
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

// Remove deletes the component for id, reporting whether it was present.
func (s *Store[T]) Remove(id EntityID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	if i != last {
		s.ids[i] = s.ids[last]
		s.values[i] = s.values[last]
		s.index[s.ids[i]] = i
	}
	s.ids = s.ids[:last]
	s.values = s.values[:last]
	delete(s.index, id)
	return true
}

func (s *Store[T]) Len() int { return len(s.ids) }

// Each visits every (id, value) pair in store order. Mutating the store
// during iteration is not allowed; collect IDs first when removal is needed.
func (s *Store[T]) Each(fn func(EntityID, T) bool) {
	for i, id := range s.ids {
		if !fn(id, s.values[i]) {
			return
		}
	}
}

// IDs returns a snapshot of the stored entity IDs.
func (s *Store[T]) IDs() []EntityID {
	out := make([]EntityID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Tag is the value type for presence-only components such as Barrier.
type Tag struct{}

// TagStore marks entities with a boolean capability.
type TagStore = Store[Tag]

func NewTagStore() *TagStore {
	return NewStore[Tag]()
}
