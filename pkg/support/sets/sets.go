// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement a set type as a `map[T]struct{}` but with better ergonomics.
package sets

import (
	"iter"
	"maps"
)

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	for _, element := range elements {
		s.Insert(element)
	}
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert key into the set, and returns whether it was not there before.
func (s Set[T]) Insert(key T) (inserted bool) {
	if s.Has(key) {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Len returns the number of elements in the set.
func (s Set[T]) Len() int {
	return len(s)
}

// Items iterates over the elements of the set, in no particular order.
func (s Set[T]) Items() iter.Seq[T] {
	return maps.Keys(s)
}
