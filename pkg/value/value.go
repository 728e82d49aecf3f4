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

// Package value implements the typed value object of spec §3/§4.5: a
// tagged union over the five value categories (string, list, set,
// sorted-set, hash), each with a compact and an expanded encoding and a
// one-way, threshold-driven promotion between them. A Value also carries
// a reference count and a last-access timestamp, shared among the
// keyspace and whatever else is holding a reference to it.
package value

import (
	"container/list"
	"strconv"
	"time"

	"github.com/minikeydb/minikeydb/pkg/constants"
	"github.com/minikeydb/minikeydb/pkg/dict"
	"github.com/minikeydb/minikeydb/pkg/intset"
	"github.com/minikeydb/minikeydb/pkg/kerrors"
	"github.com/minikeydb/minikeydb/pkg/skiplist"
	"github.com/minikeydb/minikeydb/pkg/ziplist"
)

// Kind is one of the five value categories of spec §3.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindZSet
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	case KindHash:
		return "hash"
	default:
		return "none"
	}
}

// Encoding is the active internal representation within a Kind. Once a
// Value is promoted from a compact encoding to its expanded counterpart
// it never moves back (spec §3's invariant).
type Encoding int

const (
	EncodingStringInt    Encoding = iota // compact: integer-immediate
	EncodingStringInline                 // compact: short inline bytes
	EncodingStringRaw                    // expanded: raw byte string
	EncodingListPacked
	EncodingListLinked
	EncodingSetIntset
	EncodingSetHash
	EncodingZSetPacked
	EncodingZSetSkiplist
	EncodingHashPacked
	EncodingHashTable
)

// Config holds the per-category promotion thresholds of spec §3's table.
// The zero Config is not usable; use DefaultConfig.
type Config struct {
	ListMaxZiplistEntries int
	ListMaxZiplistValue   int
	SetMaxIntsetEntries   int
	ZSetMaxZiplistEntries int
	ZSetMaxZiplistValue   int
	HashMaxZiplistEntries int
	HashMaxZiplistValue   int
	StringInlineCap       int
}

// DefaultConfig returns the thresholds of pkg/constants.
func DefaultConfig() Config {
	return Config{
		ListMaxZiplistEntries: constants.DefaultListMaxZiplistEntries,
		ListMaxZiplistValue:   constants.DefaultListMaxZiplistValue,
		SetMaxIntsetEntries:   constants.DefaultSetMaxIntsetEntries,
		ZSetMaxZiplistEntries: constants.DefaultZSetMaxZiplistEntries,
		ZSetMaxZiplistValue:   constants.DefaultZSetMaxZiplistValue,
		HashMaxZiplistEntries: constants.DefaultHashMaxZiplistEntries,
		HashMaxZiplistValue:   constants.DefaultHashMaxZiplistValue,
		StringInlineCap:       constants.DefaultStringInlineCap,
	}
}

// Value is a reference-counted, tagged-union value object.
type Value struct {
	kind     Kind
	encoding Encoding
	refcount int32
	accessed time.Time

	// string
	str    []byte
	strInt int64

	// list
	listPacked *ziplist.List
	listLinked *list.List // of []byte

	// set
	setInt  *intset.Set
	setHash *dict.Dict // member -> struct{}{}

	// zset: packed holds alternating (member, score-string) entries;
	// zsetSkip is a pkg/skiplist List, which keeps its own member->score map.
	zsetPacked *ziplist.List
	zsetSkip   *skiplist.List

	// hash: packed holds alternating (field, value) entries.
	hashPacked *ziplist.List
	hashTable  *dict.Dict // field -> []byte
}

// Kind returns the value's category.
func (v *Value) Kind() Kind { return v.kind }

// Encoding returns the value's active internal representation.
func (v *Value) Encoding() Encoding { return v.encoding }

// Retain increments the reference count. Called whenever a new holder
// (an iterator, an in-flight reply, the expirations↔primary key-bytes
// sharing) takes ownership of v.
func (v *Value) Retain() { v.refcount++ }

// Release decrements the reference count and reports whether it reached
// zero. Callers must drop all further use of v once this returns true.
func (v *Value) Release() bool {
	if v.refcount > 0 {
		v.refcount--
	}
	return v.refcount == 0
}

// RefCount returns the current reference count.
func (v *Value) RefCount() int32 { return v.refcount }

// Touch updates the access timestamp, used for approximate LRU. Callers
// skip this while a snapshot child is alive to preserve copy-on-write
// (spec §4.6).
func (v *Value) Touch(now time.Time) { v.accessed = now }

// AccessedAt returns the last Touch time.
func (v *Value) AccessedAt() time.Time { return v.accessed }

func newValue(k Kind) *Value {
	return &Value{kind: k, refcount: 1, accessed: time.Now()}
}

// ---- string -----------------------------------------------------------

// parseStringInt reports whether b's decimal representation round-trips
// exactly into an int64, per spec §4.10's integer-subtype rule reused
// here for the compact string encoding.
func parseStringInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return 0, false
	}
	return n, true
}

// NewString creates a string value, choosing the integer-immediate,
// inline, or raw encoding per spec §3's table.
func NewString(b []byte, cfg Config) *Value {
	v := newValue(KindString)
	v.setStringBytes(b, cfg)
	return v
}

func (v *Value) setStringBytes(b []byte, cfg Config) {
	if n, ok := parseStringInt(b); ok {
		v.encoding = EncodingStringInt
		v.strInt = n
		v.str = nil
		return
	}
	v.str = append([]byte(nil), b...)
	if len(b) > cfg.StringInlineCap {
		v.encoding = EncodingStringRaw
	} else {
		v.encoding = EncodingStringInline
	}
}

// StringGet returns the string's bytes.
func (v *Value) StringGet() ([]byte, error) {
	if v.kind != KindString {
		return nil, kerrors.WrongKind
	}
	if v.encoding == EncodingStringInt {
		return []byte(strconv.FormatInt(v.strInt, 10)), nil
	}
	return v.str, nil
}

// StringSet overwrites the string's contents.
func (v *Value) StringSet(b []byte, cfg Config) error {
	if v.kind != KindString {
		return kerrors.WrongKind
	}
	v.setStringBytes(b, cfg)
	return nil
}

// StringAppend appends b and returns the new length.
func (v *Value) StringAppend(b []byte, cfg Config) (int, error) {
	if v.kind != KindString {
		return 0, kerrors.WrongKind
	}
	cur, _ := v.StringGet()
	v.setStringBytes(append(append([]byte(nil), cur...), b...), cfg)
	out, _ := v.StringGet()
	return len(out), nil
}

// StringLen returns the string's byte length.
func (v *Value) StringLen() (int, error) {
	b, err := v.StringGet()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// StringIncrBy adds delta to the string's integer value. Fails with
// WrongKind if the current value isn't integer-representable.
func (v *Value) StringIncrBy(delta int64, cfg Config) (int64, error) {
	if v.kind != KindString {
		return 0, kerrors.WrongKind
	}
	if v.encoding != EncodingStringInt {
		if _, ok := parseStringInt(v.str); !ok {
			return 0, kerrors.WrongKind
		}
	}
	n := v.strInt
	if v.encoding != EncodingStringInt {
		n, _ = parseStringInt(v.str)
	}
	sum := n + delta
	if (delta > 0 && sum < n) || (delta < 0 && sum > n) {
		return 0, kerrors.OutOfRange
	}
	v.encoding = EncodingStringInt
	v.strInt = sum
	v.str = nil
	return sum, nil
}

// ---- list ---------------------------------------------------------------

// NewList creates an empty list in its compact encoding.
func NewList() *Value {
	v := newValue(KindList)
	v.encoding = EncodingListPacked
	v.listPacked = ziplist.New()
	return v
}

func (v *Value) maybePromoteList(cfg Config) {
	if v.encoding != EncodingListPacked {
		return
	}
	promote := v.listPacked.Len() > cfg.ListMaxZiplistEntries
	if !promote {
		for _, e := range v.listPacked.All() {
			if len(entryBytes(e)) > cfg.ListMaxZiplistValue {
				promote = true
				break
			}
		}
	}
	if !promote {
		return
	}
	ll := list.New()
	for _, e := range v.listPacked.All() {
		ll.PushBack(entryBytes(e))
	}
	v.listLinked = ll
	v.listPacked = nil
	v.encoding = EncodingListLinked
}

func entryBytes(e ziplist.Entry) []byte {
	if e.IsInt() {
		return []byte(strconv.FormatInt(e.Int, 10))
	}
	return e.Str
}

func entryOf(b []byte) ziplist.Entry {
	if n, ok := parseStringInt(b); ok {
		return ziplist.Int(n)
	}
	return ziplist.Str(b)
}

// ListPush pushes vals onto the head (head=true) or tail, promoting the
// encoding if the thresholds are crossed. Returns the new length.
func (v *Value) ListPush(head bool, cfg Config, vals ...[]byte) (int, error) {
	if v.kind != KindList {
		return 0, kerrors.WrongKind
	}
	for _, b := range vals {
		if v.encoding == EncodingListPacked {
			if head {
				v.listPacked.PushHead(entryOf(b))
			} else {
				v.listPacked.PushTail(entryOf(b))
			}
			v.maybePromoteList(cfg)
		} else {
			if head {
				v.listLinked.PushFront(append([]byte(nil), b...))
			} else {
				v.listLinked.PushBack(append([]byte(nil), b...))
			}
		}
	}
	return v.ListLen()
}

// ListLen returns the number of elements.
func (v *Value) ListLen() (int, error) {
	if v.kind != KindList {
		return 0, kerrors.WrongKind
	}
	if v.encoding == EncodingListPacked {
		return v.listPacked.Len(), nil
	}
	return v.listLinked.Len(), nil
}

// ListPop removes and returns the head (head=true) or tail element.
func (v *Value) ListPop(head bool) ([]byte, error) {
	if v.kind != KindList {
		return nil, kerrors.WrongKind
	}
	n, _ := v.ListLen()
	if n == 0 {
		return nil, kerrors.NoSuchKey
	}
	if v.encoding == EncodingListPacked {
		idx := 0
		if !head {
			idx = n - 1
		}
		e, err := v.listPacked.Index(idx)
		if err != nil {
			return nil, err
		}
		v.listPacked.Delete(idx)
		return entryBytes(e), nil
	}
	if head {
		e := v.listLinked.Front()
		v.listLinked.Remove(e)
		return e.Value.([]byte), nil
	}
	e := v.listLinked.Back()
	v.listLinked.Remove(e)
	return e.Value.([]byte), nil
}

// ListIndex returns the element at position i (supports negative
// indices counting from the tail, as the command surface does).
func (v *Value) ListIndex(i int) ([]byte, error) {
	if v.kind != KindList {
		return nil, kerrors.WrongKind
	}
	n, _ := v.ListLen()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, kerrors.OutOfRange
	}
	if v.encoding == EncodingListPacked {
		e, err := v.listPacked.Index(i)
		if err != nil {
			return nil, err
		}
		return entryBytes(e), nil
	}
	e := v.listLinked.Front()
	for j := 0; j < i; j++ {
		e = e.Next()
	}
	return e.Value.([]byte), nil
}

// ListRange returns elements [start, stop] inclusive, clamped to bounds.
func (v *Value) ListRange(start, stop int) ([][]byte, error) {
	n, err := v.ListLen()
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	var out [][]byte
	for i := start; i <= stop; i++ {
		b, err := v.ListIndex(i)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ListInsert inserts val before or after the first element equal to
// pivot. Returns the new length, or -1 if pivot was not found.
func (v *Value) ListInsert(before bool, pivot, val []byte, cfg Config) (int, error) {
	if v.kind != KindList {
		return 0, kerrors.WrongKind
	}
	n, _ := v.ListLen()
	idx := -1
	for i := 0; i < n; i++ {
		b, _ := v.ListIndex(i)
		if bytesEqual(b, pivot) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, nil
	}
	if v.encoding == EncodingListPacked {
		var err error
		if before {
			err = v.listPacked.InsertBefore(idx, entryOf(val))
		} else {
			err = v.listPacked.InsertAfter(idx, entryOf(val))
		}
		if err != nil {
			return 0, err
		}
		v.maybePromoteList(cfg)
		return v.ListLen()
	}
	e := v.listLinked.Front()
	for i := 0; i < idx; i++ {
		e = e.Next()
	}
	if before {
		v.listLinked.InsertBefore(append([]byte(nil), val...), e)
	} else {
		v.listLinked.InsertAfter(append([]byte(nil), val...), e)
	}
	return v.ListLen()
}

// ListRemove deletes up to count occurrences of val. count==0 removes
// all; count>0 scans head-to-tail; count<0 scans tail-to-head. Returns
// the number removed.
func (v *Value) ListRemove(val []byte, count int) (int, error) {
	n, err := v.ListLen()
	if err != nil {
		return 0, err
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}
	removed := 0
	if count >= 0 {
		for i := 0; i < n; {
			b, _ := v.ListIndex(i)
			if bytesEqual(b, val) && (limit == 0 || removed < limit) {
				v.deleteAt(i)
				removed++
				n--
				continue
			}
			i++
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			b, _ := v.ListIndex(i)
			if bytesEqual(b, val) && removed < limit {
				v.deleteAt(i)
				removed++
			}
		}
	}
	return removed, nil
}

func (v *Value) deleteAt(i int) {
	if v.encoding == EncodingListPacked {
		v.listPacked.Delete(i)
		return
	}
	e := v.listLinked.Front()
	for j := 0; j < i; j++ {
		e = e.Next()
	}
	v.listLinked.Remove(e)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---- set ------------------------------------------------------------

// NewSet creates an empty set in its compact (integer-set) encoding.
func NewSet() *Value {
	v := newValue(KindSet)
	v.encoding = EncodingSetIntset
	v.setInt = intset.New()
	return v
}

func (v *Value) maybePromoteSet(cfg Config) {
	if v.encoding != EncodingSetIntset {
		return
	}
	if v.setInt.Len() <= cfg.SetMaxIntsetEntries {
		return
	}
	h := dict.New()
	for _, n := range v.setInt.All() {
		h.Set(strconv.FormatInt(n, 10), struct{}{})
	}
	v.setHash = h
	v.setInt = nil
	v.encoding = EncodingSetHash
}

// SetAdd adds members, promoting as needed. Returns the count of newly
// added members.
func (v *Value) SetAdd(cfg Config, members ...[]byte) (int, error) {
	if v.kind != KindSet {
		return 0, kerrors.WrongKind
	}
	added := 0
	for _, m := range members {
		n, isInt := parseStringInt(m)
		if v.encoding == EncodingSetIntset && !isInt {
			h := dict.New()
			for _, x := range v.setInt.All() {
				h.Set(strconv.FormatInt(x, 10), struct{}{})
			}
			v.setHash = h
			v.setInt = nil
			v.encoding = EncodingSetHash
		}
		if v.encoding == EncodingSetIntset {
			if v.setInt.Insert(n) {
				added++
			}
			v.maybePromoteSet(cfg)
		} else {
			if v.setHash.Set(string(m), struct{}{}) {
				added++
			}
		}
	}
	return added, nil
}

// SetRemove removes members, returning the count actually removed.
func (v *Value) SetRemove(members ...[]byte) (int, error) {
	if v.kind != KindSet {
		return 0, kerrors.WrongKind
	}
	removed := 0
	for _, m := range members {
		if v.encoding == EncodingSetIntset {
			if n, ok := parseStringInt(m); ok && v.setInt.Remove(n) {
				removed++
			}
		} else if v.setHash.Delete(string(m)) {
			removed++
		}
	}
	return removed, nil
}

// SetIsMember reports membership.
func (v *Value) SetIsMember(m []byte) (bool, error) {
	if v.kind != KindSet {
		return false, kerrors.WrongKind
	}
	if v.encoding == EncodingSetIntset {
		n, ok := parseStringInt(m)
		return ok && v.setInt.Find(n), nil
	}
	_, ok := v.setHash.Get(string(m))
	return ok, nil
}

// SetCard returns the cardinality.
func (v *Value) SetCard() (int, error) {
	if v.kind != KindSet {
		return 0, kerrors.WrongKind
	}
	if v.encoding == EncodingSetIntset {
		return v.setInt.Len(), nil
	}
	return v.setHash.Len(), nil
}

// SetMembers returns every member.
func (v *Value) SetMembers() ([][]byte, error) {
	if v.kind != KindSet {
		return nil, kerrors.WrongKind
	}
	var out [][]byte
	if v.encoding == EncodingSetIntset {
		for _, n := range v.setInt.All() {
			out = append(out, []byte(strconv.FormatInt(n, 10)))
		}
		return out, nil
	}
	it := v.setHash.NewIterator()
	for it.Next() {
		out = append(out, []byte(it.Key()))
	}
	return out, nil
}

// SetRandomMember returns a uniformly random member, or ok=false if
// empty.
func (v *Value) SetRandomMember() (member []byte, ok bool, err error) {
	if v.kind != KindSet {
		return nil, false, kerrors.WrongKind
	}
	if v.encoding == EncodingSetIntset {
		if v.setInt.Len() == 0 {
			return nil, false, nil
		}
		return []byte(strconv.FormatInt(v.setInt.Random(), 10)), true, nil
	}
	k, ok := v.setHash.RandomKey()
	if !ok {
		return nil, false, nil
	}
	return []byte(k), true, nil
}

// SetPopRandom removes and returns a uniformly random member.
func (v *Value) SetPopRandom() (member []byte, ok bool, err error) {
	m, found, err := v.SetRandomMember()
	if err != nil || !found {
		return nil, false, err
	}
	v.SetRemove(m)
	return m, true, nil
}

func setOfMembers(v *Value) (map[string]bool, error) {
	members, err := v.SetMembers()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(members))
	for _, m := range members {
		out[string(m)] = true
	}
	return out, nil
}

// SetInter intersects v with others, iterating the smallest set first
// and probing the rest (spec §4.5).
func SetInter(sets ...*Value) ([][]byte, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	maps := make([]map[string]bool, len(sets))
	smallest := 0
	for i, s := range sets {
		m, err := setOfMembers(s)
		if err != nil {
			return nil, err
		}
		maps[i] = m
		if len(m) < len(maps[smallest]) || i == 0 {
			smallest = i
		}
	}
	var out [][]byte
outer:
	for m := range maps[smallest] {
		for i, other := range maps {
			if i == smallest {
				continue
			}
			if !other[m] {
				continue outer
			}
		}
		out = append(out, []byte(m))
	}
	return out, nil
}

// SetUnion unions every set.
func SetUnion(sets ...*Value) ([][]byte, error) {
	seen := map[string]bool{}
	var out [][]byte
	for _, s := range sets {
		m, err := setOfMembers(s)
		if err != nil {
			return nil, err
		}
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, []byte(k))
			}
		}
	}
	return out, nil
}

// SetDiff returns members of the first set absent from every other,
// choosing between an iterate-and-filter pass and a copy-then-subtract
// pass based on estimated work (spec §4.5).
func SetDiff(sets ...*Value) ([][]byte, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	first, err := setOfMembers(sets[0])
	if err != nil {
		return nil, err
	}
	rest := sets[1:]
	iterateWork := len(first) * len(rest)
	copyWork := 0
	restMaps := make([]map[string]bool, len(rest))
	for i, s := range rest {
		m, err := setOfMembers(s)
		if err != nil {
			return nil, err
		}
		restMaps[i] = m
		copyWork += len(m)
	}
	var out [][]byte
	if iterateWork <= copyWork {
		for m := range first {
			excluded := false
			for _, rm := range restMaps {
				if rm[m] {
					excluded = true
					break
				}
			}
			if !excluded {
				out = append(out, []byte(m))
			}
		}
		return out, nil
	}
	remaining := make(map[string]bool, len(first))
	for m := range first {
		remaining[m] = true
	}
	for _, rm := range restMaps {
		for m := range rm {
			delete(remaining, m)
		}
	}
	for m := range remaining {
		out = append(out, []byte(m))
	}
	return out, nil
}

// ---- sorted set -------------------------------------------------------

// NewZSet creates an empty sorted set in its compact encoding.
func NewZSet() *Value {
	v := newValue(KindZSet)
	v.encoding = EncodingZSetPacked
	v.zsetPacked = ziplist.New()
	return v
}

func (v *Value) zsetPackedScore(i int) (member string, score float64) {
	me, _ := v.zsetPacked.Index(i * 2)
	se, _ := v.zsetPacked.Index(i*2 + 1)
	score, _ = strconv.ParseFloat(string(entryBytes(se)), 64)
	return string(entryBytes(me)), score
}

func (v *Value) zsetPackedLen() int { return v.zsetPacked.Len() / 2 }

func (v *Value) maybePromoteZSet(cfg Config) {
	if v.encoding != EncodingZSetPacked {
		return
	}
	promote := v.zsetPackedLen() > cfg.ZSetMaxZiplistEntries
	if !promote {
		for i := 0; i < v.zsetPackedLen(); i++ {
			member, _ := v.zsetPackedScore(i)
			if len(member) > cfg.ZSetMaxZiplistValue {
				promote = true
				break
			}
		}
	}
	if !promote {
		return
	}
	sk := skiplist.New()
	for i := 0; i < v.zsetPackedLen(); i++ {
		member, score := v.zsetPackedScore(i)
		sk.Insert(member, score)
	}
	v.zsetSkip = sk
	v.zsetPacked = nil
	v.encoding = EncodingZSetSkiplist
}

// ZSetAdd adds or updates member's score. Returns whether member was new.
func (v *Value) ZSetAdd(member []byte, score float64, cfg Config) (bool, error) {
	if v.kind != KindZSet {
		return false, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		isNew := v.zsetSkip.Insert(string(member), score)
		return isNew, nil
	}
	// compact: remove any existing pair for member, then re-insert in
	// sorted position.
	existing := -1
	for i := 0; i < v.zsetPackedLen(); i++ {
		m, _ := v.zsetPackedScore(i)
		if m == string(member) {
			existing = i
			break
		}
	}
	if existing >= 0 {
		v.zsetPacked.Delete(existing * 2)
		v.zsetPacked.Delete(existing * 2)
	}
	pos := v.zsetPackedLen()
	for i := 0; i < v.zsetPackedLen(); i++ {
		m, s := v.zsetPackedScore(i)
		if score < s || (score == s && string(member) < m) {
			pos = i
			break
		}
	}
	scoreStr := strconv.FormatFloat(score, 'g', 17, 64)
	if pos == v.zsetPackedLen() {
		v.zsetPacked.PushTail(entryOf(member))
		v.zsetPacked.PushTail(entryOf([]byte(scoreStr)))
	} else {
		v.zsetPacked.InsertBefore(pos*2, entryOf([]byte(scoreStr)))
		v.zsetPacked.InsertBefore(pos*2, entryOf(member))
	}
	v.maybePromoteZSet(cfg)
	return existing == -1, nil
}

// ZSetRemove deletes member, reporting whether it was present.
func (v *Value) ZSetRemove(member []byte) (bool, error) {
	if v.kind != KindZSet {
		return false, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		return v.zsetSkip.Remove(string(member)), nil
	}
	for i := 0; i < v.zsetPackedLen(); i++ {
		m, _ := v.zsetPackedScore(i)
		if m == string(member) {
			v.zsetPacked.Delete(i * 2)
			v.zsetPacked.Delete(i * 2)
			return true, nil
		}
	}
	return false, nil
}

// ZSetScore returns member's score.
func (v *Value) ZSetScore(member []byte) (float64, bool, error) {
	if v.kind != KindZSet {
		return 0, false, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		s, ok := v.zsetSkip.Score(string(member))
		return s, ok, nil
	}
	for i := 0; i < v.zsetPackedLen(); i++ {
		m, s := v.zsetPackedScore(i)
		if m == string(member) {
			return s, true, nil
		}
	}
	return 0, false, nil
}

// ZSetIncrBy adds delta to member's score (inserting it at delta if
// absent), returning the new score.
func (v *Value) ZSetIncrBy(member []byte, delta float64, cfg Config) (float64, error) {
	score, _, err := v.ZSetScore(member)
	if err != nil {
		return 0, err
	}
	newScore := score + delta
	if _, err := v.ZSetAdd(member, newScore, cfg); err != nil {
		return 0, err
	}
	return newScore, nil
}

// Pair is one (member, score) result.
type Pair struct {
	Member []byte
	Score  float64
}

func (v *Value) zsetAllPairs() []Pair {
	var out []Pair
	if v.encoding == EncodingZSetSkiplist {
		for _, n := range v.zsetSkip.All() {
			out = append(out, Pair{[]byte(n.Member), n.Score})
		}
		return out
	}
	for i := 0; i < v.zsetPackedLen(); i++ {
		m, s := v.zsetPackedScore(i)
		out = append(out, Pair{[]byte(m), s})
	}
	return out
}

// ZSetRank returns member's ascending rank (reverse=true for descending).
// On the skiplist encoding this resolves via the span counters in
// O(log N), the whole reason the skiplist carries them; the packed
// encoding has no such index and falls back to a linear scan.
func (v *Value) ZSetRank(member []byte, reverse bool) (int, bool, error) {
	if v.kind != KindZSet {
		return 0, false, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		rank, ok := v.zsetSkip.Rank(string(member))
		if !ok {
			return 0, false, nil
		}
		if reverse {
			return v.zsetSkip.Len() - 1 - rank, true, nil
		}
		return rank, true, nil
	}
	pairs := v.zsetAllPairs()
	for i, p := range pairs {
		if bytesEqual(p.Member, member) {
			if reverse {
				return len(pairs) - 1 - i, true, nil
			}
			return i, true, nil
		}
	}
	return 0, false, nil
}

// ZSetRangeByRank returns entries with ranks in [start, stop] inclusive.
// The skiplist encoding resolves the start of the range via ByRank's
// O(log N) descent and then walks the bottom-level forward pointers for
// the k entries in range, instead of materializing every member.
func (v *Value) ZSetRangeByRank(start, stop int, reverse bool) ([]Pair, error) {
	if v.kind != KindZSet {
		return nil, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		n := v.zsetSkip.Len()
		start, stop, ok := clampRange(start, stop, n)
		if !ok {
			return nil, nil
		}
		if reverse {
			start, stop = n-1-stop, n-1-start
		}
		nodes := v.zsetSkip.RangeByRank(start, stop)
		out := make([]Pair, len(nodes))
		for i, node := range nodes {
			out[i] = Pair{Member: []byte(node.Member), Score: node.Score}
		}
		if reverse {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out, nil
	}
	pairs := v.zsetAllPairs()
	if reverse {
		for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		}
	}
	start, stop, ok := clampRange(start, stop, len(pairs))
	if !ok {
		return nil, nil
	}
	return pairs[start : stop+1], nil
}

// clampRange normalizes a possibly-negative [start, stop] pair (Python-
// style indexing from the end) against a sequence of length n.
func clampRange(start, stop, n int) (int, int, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return 0, 0, false
	}
	return start, stop, true
}

// ScoreRange is an open/closed bound pair for ZSetRangeByScore.
type ScoreRange struct {
	Min, Max         float64
	MinExcl, MaxExcl bool
}

func (r ScoreRange) contains(s float64) bool {
	if r.MinExcl {
		if s <= r.Min {
			return false
		}
	} else if s < r.Min {
		return false
	}
	if r.MaxExcl {
		if s >= r.Max {
			return false
		}
	} else if s > r.Max {
		return false
	}
	return true
}

// ZSetRangeByScore returns entries whose score falls within r, ascending.
// The skiplist encoding locates the first candidate in O(log N) via
// RangeByScore's descent and then only walks the (already narrow) [Min,
// Max] band to apply the exact open/closed bound test, rather than
// scanning every member in the set.
func (v *Value) ZSetRangeByScore(r ScoreRange) ([]Pair, error) {
	if v.kind != KindZSet {
		return nil, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		var out []Pair
		for _, node := range v.zsetSkip.RangeByScore(r.Min, r.Max) {
			if r.contains(node.Score) {
				out = append(out, Pair{Member: []byte(node.Member), Score: node.Score})
			}
		}
		return out, nil
	}
	var out []Pair
	for _, p := range v.zsetAllPairs() {
		if r.contains(p.Score) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ZSetCountInRange counts entries within r.
func (v *Value) ZSetCountInRange(r ScoreRange) (int, error) {
	pairs, err := v.ZSetRangeByScore(r)
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// ZSetLen returns the cardinality.
func (v *Value) ZSetLen() (int, error) {
	if v.kind != KindZSet {
		return 0, kerrors.WrongKind
	}
	if v.encoding == EncodingZSetSkiplist {
		return v.zsetSkip.Len(), nil
	}
	return v.zsetPackedLen(), nil
}

// ---- hash ---------------------------------------------------------------

// NewHash creates an empty hash in its compact encoding.
func NewHash() *Value {
	v := newValue(KindHash)
	v.encoding = EncodingHashPacked
	v.hashPacked = ziplist.New()
	return v
}

func (v *Value) hashPackedLen() int { return v.hashPacked.Len() / 2 }

func (v *Value) hashPackedGet(field string) (string, bool) {
	for i := 0; i < v.hashPackedLen(); i++ {
		fe, _ := v.hashPacked.Index(i * 2)
		if string(entryBytes(fe)) == field {
			ve, _ := v.hashPacked.Index(i*2 + 1)
			return string(entryBytes(ve)), true
		}
	}
	return "", false
}

func (v *Value) hashPackedSet(field, val string) bool {
	for i := 0; i < v.hashPackedLen(); i++ {
		fe, _ := v.hashPacked.Index(i * 2)
		if string(entryBytes(fe)) == field {
			v.hashPacked.Delete(i*2 + 1)
			v.hashPacked.InsertBefore(i*2+1, entryOf([]byte(val)))
			return false
		}
	}
	v.hashPacked.PushTail(entryOf([]byte(field)))
	v.hashPacked.PushTail(entryOf([]byte(val)))
	return true
}

func (v *Value) maybePromoteHash(cfg Config) {
	if v.encoding != EncodingHashPacked {
		return
	}
	promote := v.hashPackedLen() > cfg.HashMaxZiplistEntries
	if !promote {
		for i := 0; i < v.hashPacked.Len(); i++ {
			e, _ := v.hashPacked.Index(i)
			if len(entryBytes(e)) > cfg.HashMaxZiplistValue {
				promote = true
				break
			}
		}
	}
	if !promote {
		return
	}
	h := dict.New()
	for i := 0; i < v.hashPackedLen(); i++ {
		fe, _ := v.hashPacked.Index(i * 2)
		ve, _ := v.hashPacked.Index(i*2 + 1)
		h.Set(string(entryBytes(fe)), entryBytes(ve))
	}
	v.hashTable = h
	v.hashPacked = nil
	v.encoding = EncodingHashTable
}

// HashSet sets field=val. Returns whether field was newly added.
func (v *Value) HashSet(field, val []byte, cfg Config) (bool, error) {
	if v.kind != KindHash {
		return false, kerrors.WrongKind
	}
	if v.encoding == EncodingHashTable {
		return v.hashTable.Set(string(field), append([]byte(nil), val...)), nil
	}
	isNew := v.hashPackedSet(string(field), string(val))
	v.maybePromoteHash(cfg)
	return isNew, nil
}

// HashSetFields sets multiple field=val pairs in one call (HSET's
// multi-field form) and returns the count of fields that were newly
// added, not merely overwritten.
func (v *Value) HashSetFields(cfg Config, pairs ...FieldValue) (int, error) {
	added := 0
	for _, p := range pairs {
		isNew, err := v.HashSet(p.Field, p.Value, cfg)
		if err != nil {
			return added, err
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// HashGet returns field's value.
func (v *Value) HashGet(field []byte) ([]byte, bool, error) {
	if v.kind != KindHash {
		return nil, false, kerrors.WrongKind
	}
	if v.encoding == EncodingHashTable {
		val, ok := v.hashTable.Get(string(field))
		if !ok {
			return nil, false, nil
		}
		return val.([]byte), true, nil
	}
	s, ok := v.hashPackedGet(string(field))
	if !ok {
		return nil, false, nil
	}
	return []byte(s), true, nil
}

// HashDel removes field, reporting whether it was present.
func (v *Value) HashDel(field []byte) (bool, error) {
	if v.kind != KindHash {
		return false, kerrors.WrongKind
	}
	if v.encoding == EncodingHashTable {
		return v.hashTable.Delete(string(field)), nil
	}
	for i := 0; i < v.hashPackedLen(); i++ {
		fe, _ := v.hashPacked.Index(i * 2)
		if string(entryBytes(fe)) == string(field) {
			v.hashPacked.Delete(i * 2)
			v.hashPacked.Delete(i * 2)
			return true, nil
		}
	}
	return false, nil
}

// HashExists reports whether field is present.
func (v *Value) HashExists(field []byte) (bool, error) {
	_, ok, err := v.HashGet(field)
	return ok, err
}

// HashLen returns the number of fields.
func (v *Value) HashLen() (int, error) {
	if v.kind != KindHash {
		return 0, kerrors.WrongKind
	}
	if v.encoding == EncodingHashTable {
		return v.hashTable.Len(), nil
	}
	return v.hashPackedLen(), nil
}

// HashKeys returns every field name.
func (v *Value) HashKeys() ([][]byte, error) {
	entries, err := v.HashEntries()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Field
	}
	return out, nil
}

// HashValues returns every field value.
func (v *Value) HashValues() ([][]byte, error) {
	entries, err := v.HashEntries()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

// FieldValue is one hash field/value pair.
type FieldValue struct {
	Field []byte
	Value []byte
}

// HashEntries returns every field/value pair. The compact encoding
// preserves insertion order (spec §8's scenario 5).
func (v *Value) HashEntries() ([]FieldValue, error) {
	if v.kind != KindHash {
		return nil, kerrors.WrongKind
	}
	var out []FieldValue
	if v.encoding == EncodingHashTable {
		it := v.hashTable.NewIterator()
		for it.Next() {
			out = append(out, FieldValue{[]byte(it.Key()), it.Value().([]byte)})
		}
		return out, nil
	}
	for i := 0; i < v.hashPackedLen(); i++ {
		fe, _ := v.hashPacked.Index(i * 2)
		ve, _ := v.hashPacked.Index(i*2 + 1)
		out = append(out, FieldValue{entryBytes(fe), entryBytes(ve)})
	}
	return out, nil
}

// ---- snapshot interop (pkg/rdb) -----------------------------------------
//
// These accessors expose each compact encoding's raw wire bytes, and let
// pkg/rdb reconstruct a Value directly in either encoding without
// replaying individual mutation calls (and therefore without re-running
// promotion checks against a possibly different Config than the one
// active when the snapshot was written).

// ListPackedBytes returns the raw packed-sequence bytes if the list is
// in its compact encoding.
func (v *Value) ListPackedBytes() ([]byte, bool) {
	if v.kind != KindList || v.encoding != EncodingListPacked {
		return nil, false
	}
	return v.listPacked.Bytes(), true
}

// ListElements returns every element in order, regardless of encoding.
func (v *Value) ListElements() ([][]byte, error) {
	return v.ListRange(0, -1)
}

// LoadListPacked reconstructs a compact-encoded list from raw bytes
// produced by ListPackedBytes.
func LoadListPacked(b []byte) (*Value, error) {
	l, err := ziplist.FromBytes(b)
	if err != nil {
		return nil, err
	}
	v := newValue(KindList)
	v.encoding = EncodingListPacked
	v.listPacked = l
	return v, nil
}

// LoadListLinked reconstructs an expanded-encoding list from elements.
func LoadListLinked(elements [][]byte) *Value {
	v := newValue(KindList)
	v.encoding = EncodingListLinked
	v.listLinked = list.New()
	for _, e := range elements {
		v.listLinked.PushBack(append([]byte(nil), e...))
	}
	return v
}

// SetIntsetBytes returns the raw intset bytes if the set is in its
// compact encoding.
func (v *Value) SetIntsetBytes() ([]byte, bool) {
	if v.kind != KindSet || v.encoding != EncodingSetIntset {
		return nil, false
	}
	return v.setInt.Bytes(), true
}

// LoadSetIntset reconstructs a compact-encoded set from raw bytes
// produced by SetIntsetBytes.
func LoadSetIntset(b []byte) *Value {
	v := newValue(KindSet)
	v.encoding = EncodingSetIntset
	v.setInt = intset.FromBytes(b)
	return v
}

// LoadSetHash reconstructs an expanded-encoding set from its members.
func LoadSetHash(members [][]byte) *Value {
	v := newValue(KindSet)
	v.encoding = EncodingSetHash
	v.setHash = dict.New()
	for _, m := range members {
		v.setHash.Set(string(m), struct{}{})
	}
	return v
}

// ZSetPackedBytes returns the raw packed (member, score) pair bytes if
// the sorted set is in its compact encoding.
func (v *Value) ZSetPackedBytes() ([]byte, bool) {
	if v.kind != KindZSet || v.encoding != EncodingZSetPacked {
		return nil, false
	}
	return v.zsetPacked.Bytes(), true
}

// LoadZSetPacked reconstructs a compact-encoded sorted set from raw
// bytes produced by ZSetPackedBytes.
func LoadZSetPacked(b []byte) (*Value, error) {
	l, err := ziplist.FromBytes(b)
	if err != nil {
		return nil, err
	}
	v := newValue(KindZSet)
	v.encoding = EncodingZSetPacked
	v.zsetPacked = l
	return v, nil
}

// LoadZSetSkiplist reconstructs an expanded-encoding sorted set from its
// (member, score) pairs.
func LoadZSetSkiplist(pairs []Pair) *Value {
	v := newValue(KindZSet)
	v.encoding = EncodingZSetSkiplist
	v.zsetSkip = skiplist.New()
	for _, p := range pairs {
		v.zsetSkip.Insert(string(p.Member), p.Score)
	}
	return v
}

// ZSetAllPairs returns every (member, score) pair in ascending order,
// regardless of encoding.
func (v *Value) ZSetAllPairs() []Pair { return v.zsetAllPairs() }

// HashPackedBytes returns the raw packed (field, value) pair bytes if
// the hash is in its compact encoding.
func (v *Value) HashPackedBytes() ([]byte, bool) {
	if v.kind != KindHash || v.encoding != EncodingHashPacked {
		return nil, false
	}
	return v.hashPacked.Bytes(), true
}

// LoadHashPacked reconstructs a compact-encoded hash from raw bytes
// produced by HashPackedBytes.
func LoadHashPacked(b []byte) (*Value, error) {
	l, err := ziplist.FromBytes(b)
	if err != nil {
		return nil, err
	}
	v := newValue(KindHash)
	v.encoding = EncodingHashPacked
	v.hashPacked = l
	return v, nil
}

// LoadHashTable reconstructs an expanded-encoding hash from its entries.
func LoadHashTable(entries []FieldValue) *Value {
	v := newValue(KindHash)
	v.encoding = EncodingHashTable
	v.hashTable = dict.New()
	for _, e := range entries {
		v.hashTable.Set(string(e.Field), append([]byte(nil), e.Value...))
	}
	return v
}

// HashIncrBy adds delta to field's integer value, creating it at delta
// if absent. Fails with WrongKind if the existing value isn't an
// integer.
func (v *Value) HashIncrBy(field []byte, delta int64, cfg Config) (int64, error) {
	cur, ok, err := v.HashGet(field)
	if err != nil {
		return 0, err
	}
	n := int64(0)
	if ok {
		parsed, isInt := parseStringInt(cur)
		if !isInt {
			return 0, kerrors.WrongKind
		}
		n = parsed
	}
	sum := n + delta
	if (delta > 0 && sum < n) || (delta < 0 && sum > n) {
		return 0, kerrors.OutOfRange
	}
	if _, err := v.HashSet(field, []byte(strconv.FormatInt(sum, 10)), cfg); err != nil {
		return 0, err
	}
	return sum, nil
}
