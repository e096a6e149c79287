package internal

// Set is a generic data structure that represents a collection of unique items.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet creates and returns a new empty Set.
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{
		items: make(map[T]struct{}),
	}
}

// Add inserts an item and reports whether it was new.
func (s *Set[T]) Add(item T) bool {
	if _, exists := s.items[item]; exists {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

// Contains checks if an item exists in the set.
func (s *Set[T]) Contains(item T) bool {
	_, exists := s.items[item]
	return exists
}

// Size returns the number of items in the set.
func (s *Set[T]) Size() int {
	return len(s.items)
}

// OrderedSet is a Set that remembers insertion order.
type OrderedSet[T comparable] struct {
	set   *Set[T]
	order []T
}

// NewOrderedSet creates an empty OrderedSet.
func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{set: NewSet[T]()}
}

// Add appends item unless it is already present.
func (s *OrderedSet[T]) Add(item T) bool {
	if !s.set.Add(item) {
		return false
	}
	s.order = append(s.order, item)
	return true
}

// Contains checks if an item exists in the set.
func (s *OrderedSet[T]) Contains(item T) bool {
	return s.set.Contains(item)
}

// Size returns the number of items in the set.
func (s *OrderedSet[T]) Size() int {
	return len(s.order)
}

// Items returns a copy of the items in insertion order.
func (s *OrderedSet[T]) Items() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}
