// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package split

// Set is an insertion-ordered set of splits
// keyed by logical identity. Splits that
// differ only in their Addresses are considered
// to be the same element, so the first one
// added wins.
//
// The zero value of Set is ready to use.
// A Set is not safe for concurrent mutation.
type Set struct {
	buckets map[uint64][]int
	items   []Comparable
}

func (s *Set) find(c Comparable) (uint64, int) {
	h := c.Hash()
	for _, i := range s.buckets[h] {
		if s.items[i].Equal(c) {
			return h, i
		}
	}
	return h, -1
}

// Add adds c to the set and reports
// whether it was not already present.
func (s *Set) Add(c Comparable) bool {
	h, i := s.find(c)
	if i >= 0 {
		return false
	}
	if s.buckets == nil {
		s.buckets = make(map[uint64][]int)
	}
	s.buckets[h] = append(s.buckets[h], len(s.items))
	s.items = append(s.items, c)
	return true
}

// Contains reports whether a split with
// the same identity as c is in the set.
func (s *Set) Contains(c Comparable) bool {
	_, i := s.find(c)
	return i >= 0
}

// Get returns the element of the set with
// the same identity as c, if there is one.
func (s *Set) Get(c Comparable) (Comparable, bool) {
	_, i := s.find(c)
	if i < 0 {
		return nil, false
	}
	return s.items[i], true
}

// Len returns the number of distinct splits.
func (s *Set) Len() int { return len(s.items) }

// Splits returns the elements of the set
// in the order in which they were added.
func (s *Set) Splits() []Comparable {
	return append([]Comparable(nil), s.items...)
}
