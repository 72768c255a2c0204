// Package bimap provides an immutable two-way lookup table, used for enums that
// travel on the wire as strings.
package bimap

// BiMap maps keys to values and values back to keys. It is built once and never
// mutated, so it is safe for concurrent readers.
type BiMap[K comparable, V comparable] struct {
	forward map[K]V
	reverse map[V]K
}

// New copies input into a BiMap. When two keys share a value, the reverse
// lookup keeps whichever key was visited last.
func New[K comparable, V comparable](input map[K]V) *BiMap[K, V] {
	m := &BiMap[K, V]{
		forward: make(map[K]V, len(input)),
		reverse: make(map[V]K, len(input)),
	}
	for k, v := range input {
		m.forward[k] = v
		m.reverse[v] = k
	}
	return m
}

// Value returns the value stored for key.
func (m *BiMap[K, V]) Value(key K) (V, bool) {
	v, ok := m.forward[key]
	return v, ok
}

// Key returns the key stored for value.
func (m *BiMap[K, V]) Key(value V) (K, bool) {
	k, ok := m.reverse[value]
	return k, ok
}

// ValueOr returns the value for key, or fallback when key is unknown.
func (m *BiMap[K, V]) ValueOr(key K, fallback V) V {
	if v, ok := m.forward[key]; ok {
		return v
	}
	return fallback
}

// Len returns the number of entries.
func (m *BiMap[K, V]) Len() int {
	return len(m.forward)
}
