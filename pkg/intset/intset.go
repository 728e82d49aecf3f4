/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package intset implements the sorted-integer set of spec §4.2: a sorted
// array of fixed-width signed integers (width auto-promoted among
// 16/32/64-bit) with binary-search membership, insert, remove, and random
// access. Width only ever grows: the array is always kept sorted, and its
// width is the narrowest that fits every value inserted so far (removing
// the only wide value does not narrow it).
package intset

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sort"
)

// Width identifies the fixed per-element byte width currently in use.
type Width int

const (
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// Set is a sorted array of signed integers of a single, auto-promoted
// width.
type Set struct {
	width Width
	vals  []int64 // logical values; encoded lazily into buf only by Bytes
}

// New returns an empty set at the narrowest width.
func New() *Set {
	return &Set{width: Width16}
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.vals) }

// Width reports the set's current element width.
func (s *Set) Width() Width { return s.width }

func widthFor(v int64) Width {
	switch {
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return Width16
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return Width32
	default:
		return Width64
	}
}

func (s *Set) search(v int64) (pos int, found bool) {
	pos = sort.Search(len(s.vals), func(i int) bool { return s.vals[i] >= v })
	found = pos < len(s.vals) && s.vals[pos] == v
	return
}

// Find reports whether v is a member, via binary search. O(log N).
func (s *Set) Find(v int64) bool {
	_, found := s.search(v)
	return found
}

// Insert adds v, promoting the width if necessary. Reports whether v was
// newly added (false if already present).
func (s *Set) Insert(v int64) bool {
	pos, found := s.search(v)
	if found {
		return false
	}
	if w := widthFor(v); w > s.width {
		s.width = w
	}
	s.vals = append(s.vals, 0)
	copy(s.vals[pos+1:], s.vals[pos:])
	s.vals[pos] = v
	return true
}

// Remove deletes v if present, reporting whether it was removed.
func (s *Set) Remove(v int64) bool {
	pos, found := s.search(v)
	if !found {
		return false
	}
	s.vals = append(s.vals[:pos], s.vals[pos+1:]...)
	return true
}

// Random returns a uniformly random member. Panics if the set is empty;
// callers (pkg/value) must check Len() first.
func (s *Set) Random() int64 {
	return s.vals[rand.Intn(len(s.vals))]
}

// All returns the elements in ascending order. The returned slice must
// not be mutated by the caller.
func (s *Set) All() []int64 {
	return s.vals
}

// Bytes encodes the set as {width(uint32), length(uint32), elements...}
// little-endian, matching the on-disk intset layout spec §4.2 names
// (width, length, then a tightly packed sorted array).
func (s *Set) Bytes() []byte {
	buf := make([]byte, 8+int(s.width)*len(s.vals))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(s.vals)))
	off := 8
	for _, v := range s.vals {
		switch s.width {
		case Width16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(int16(v)))
		case Width32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(int32(v)))
		case Width64:
			binary.LittleEndian.PutUint64(buf[off:], uint64(v))
		}
		off += int(s.width)
	}
	return buf
}

// FromBytes decodes a buffer produced by Bytes.
func FromBytes(buf []byte) *Set {
	width := Width(binary.LittleEndian.Uint32(buf[0:4]))
	n := int(binary.LittleEndian.Uint32(buf[4:8]))
	s := &Set{width: width, vals: make([]int64, n)}
	off := 8
	for i := 0; i < n; i++ {
		switch width {
		case Width16:
			s.vals[i] = int64(int16(binary.LittleEndian.Uint16(buf[off:])))
		case Width32:
			s.vals[i] = int64(int32(binary.LittleEndian.Uint32(buf[off:])))
		case Width64:
			s.vals[i] = int64(binary.LittleEndian.Uint64(buf[off:]))
		}
		off += int(width)
	}
	return s
}
