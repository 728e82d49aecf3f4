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

// Package ziplist implements the packed sequence codec of spec §4.1: a
// single contiguous byte buffer holding a sequence of heterogeneous small
// entries (short byte strings and small integers) in insertion order.
//
// The buffer layout is: a fixed header (total byte length, tail offset,
// entry count), followed by entries back to back. Each entry is a
// variable-length "previous entry length" field followed by an encoding
// tag that selects one of a short byte-string, a 14-bit-length byte
// string, a 32-bit-length byte string, or an embedded/explicit-width
// integer.
package ziplist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const headerSize = 4 + 4 + 2 // total-bytes(uint32) + tail-offset(uint32) + entry-count(uint16)

// ErrOutOfRange is returned by Index, InsertBefore, InsertAfter, Delete
// and DeleteRange when an index is outside the list.
var ErrOutOfRange = errors.New("ziplist: index out of range")

// entry encoding tags, stored in the byte immediately following
// prevlen. Values 0xC0-0xFE carry special meaning; everything below
// 0xC0 with the top two bits clear/10/01 describes a string length.
const (
	tagStr6  = 0x00 // 00llllll: 6-bit length string
	tagStr14 = 0x40 // 01llllll llllllll: 14-bit length string
	tagStr32 = 0x80 // 10000000 + 4 bytes big-endian length
	tagMask  = 0xC0

	tagInt16  = 0xC0
	tagInt32  = 0xD0
	tagInt64  = 0xE0
	tagInt24  = 0xF0
	tagInt8   = 0xFE
	tagIntImm = 0xF1 // 0xF1..0xFD: immediate 4-bit value (0..12), biased by 1
)

// List is a packed sequence of small entries.
type List struct {
	buf []byte
}

// New returns an empty packed sequence.
func New() *List {
	l := &List{buf: make([]byte, headerSize)}
	l.setTotalBytes(headerSize)
	l.setTailOffset(headerSize)
	l.setEntryCount(0)
	return l
}

// Len returns the number of entries.
func (l *List) Len() int {
	return int(l.entryCount())
}

// Bytes returns the raw encoded buffer, suitable for persisting as an
// opaque blob (spec §4.9).
func (l *List) Bytes() []byte {
	return l.buf
}

// FromBytes wraps an already-encoded buffer (as read back from a
// snapshot) without re-validating every entry.
func FromBytes(b []byte) (*List, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("ziplist: buffer too short (%d bytes)", len(b))
	}
	return &List{buf: append([]byte(nil), b...)}, nil
}

func (l *List) totalBytes() uint32    { return binary.LittleEndian.Uint32(l.buf[0:4]) }
func (l *List) setTotalBytes(v int)   { binary.LittleEndian.PutUint32(l.buf[0:4], uint32(v)) }
func (l *List) tailOffset() uint32    { return binary.LittleEndian.Uint32(l.buf[4:8]) }
func (l *List) setTailOffset(v int)   { binary.LittleEndian.PutUint32(l.buf[4:8], uint32(v)) }
func (l *List) entryCount() uint16    { return binary.LittleEndian.Uint16(l.buf[8:10]) }
func (l *List) setEntryCount(v int)   { binary.LittleEndian.PutUint16(l.buf[8:10], uint16(v)) }
func (l *List) bumpEntryCount(d int)  { l.setEntryCount(int(l.entryCount()) + d) }

// Entry is a decoded element: either a byte string (Str != nil) or an
// integer (Str == nil, Int holds the value).
type Entry struct {
	Str []byte
	Int int64
}

// Str is a convenience constructor for a byte-string entry.
func Str(b []byte) Entry { return Entry{Str: b} }

// Int is a convenience constructor for an integer entry.
func Int(v int64) Entry { return Entry{Int: v} }

// IsInt reports whether the entry holds an integer.
func (e Entry) IsInt() bool { return e.Str == nil }

// Bytes returns the entry's value as bytes, formatting integers as their
// canonical base-10 form.
func (e Entry) Bytes() []byte {
	if e.Str != nil {
		return e.Str
	}
	return []byte(strconv.FormatInt(e.Int, 10))
}

// prevlenSize returns the on-wire width (1 or 5 bytes) of a prevlen field
// encoding the given previous entry length.
func prevlenSize(n int) int {
	if n < 254 {
		return 1
	}
	return 5
}

func putPrevlen(dst []byte, n int) int {
	if n < 254 {
		dst[0] = byte(n)
		return 1
	}
	dst[0] = 254
	binary.LittleEndian.PutUint32(dst[1:5], uint32(n))
	return 5
}

func readPrevlen(buf []byte, off int) (n, size int) {
	if buf[off] < 254 {
		return int(buf[off]), 1
	}
	return int(binary.LittleEndian.Uint32(buf[off+1 : off+5])), 5
}

// encodedEntrySize returns the number of bytes the encoding tag + payload
// (not counting prevlen) takes for the given entry.
func encodedEntrySize(e Entry) int {
	if e.Str == nil {
		return intEncodingSize(e.Int)
	}
	n := len(e.Str)
	switch {
	case n < 64:
		return 1 + n
	case n < 16384:
		return 2 + n
	default:
		return 5 + n
	}
}

func intEncodingSize(v int64) int {
	if v >= 0 && v <= 12 {
		return 1
	}
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return 2
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return 3
	case v >= -(1<<23) && v <= (1<<23)-1:
		return 4
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return 5
	default:
		return 9
	}
}

func encodeEntryTag(dst []byte, e Entry) int {
	if e.Str != nil {
		n := len(e.Str)
		switch {
		case n < 64:
			dst[0] = tagStr6 | byte(n)
			copy(dst[1:], e.Str)
			return 1 + n
		case n < 16384:
			dst[0] = tagStr14 | byte(n>>8)
			dst[1] = byte(n)
			copy(dst[2:], e.Str)
			return 2 + n
		default:
			dst[0] = tagStr32
			binary.BigEndian.PutUint32(dst[1:5], uint32(n))
			copy(dst[5:], e.Str)
			return 5 + n
		}
	}
	v := e.Int
	switch {
	case v >= 0 && v <= 12:
		dst[0] = tagIntImm + byte(v) // 0xF1..0xFD
		return 1
	case v >= math.MinInt8 && v <= math.MaxInt8:
		dst[0] = tagInt8
		dst[1] = byte(int8(v))
		return 2
	case v >= math.MinInt16 && v <= math.MaxInt16:
		dst[0] = tagInt16
		binary.LittleEndian.PutUint16(dst[1:3], uint16(int16(v)))
		return 3
	case v >= -(1<<23) && v <= (1<<23)-1:
		dst[0] = tagInt24
		u := uint32(v) & 0xFFFFFF
		dst[1] = byte(u)
		dst[2] = byte(u >> 8)
		dst[3] = byte(u >> 16)
		return 4
	case v >= math.MinInt32 && v <= math.MaxInt32:
		dst[0] = tagInt32
		binary.LittleEndian.PutUint32(dst[1:5], uint32(int32(v)))
		return 5
	default:
		dst[0] = tagInt64
		binary.LittleEndian.PutUint64(dst[1:9], uint64(v))
		return 9
	}
}

func decodeEntryTag(buf []byte, off int) (Entry, int) {
	b := buf[off]
	switch {
	case b&tagMask == tagStr6:
		n := int(b & 0x3F)
		return Entry{Str: buf[off+1 : off+1+n]}, 1 + n
	case b&tagMask == tagStr14:
		n := (int(b&0x3F) << 8) | int(buf[off+1])
		return Entry{Str: buf[off+2 : off+2+n]}, 2 + n
	case b == tagStr32:
		n := int(binary.BigEndian.Uint32(buf[off+1 : off+5]))
		return Entry{Str: buf[off+5 : off+5+n]}, 5 + n
	case b == tagInt8:
		return Entry{Int: int64(int8(buf[off+1]))}, 2
	case b == tagInt16:
		return Entry{Int: int64(int16(binary.LittleEndian.Uint16(buf[off+1 : off+3])))}, 3
	case b == tagInt24:
		u := uint32(buf[off+1]) | uint32(buf[off+2])<<8 | uint32(buf[off+3])<<16
		if u&0x800000 != 0 {
			u |= 0xFF000000
		}
		return Entry{Int: int64(int32(u))}, 4
	case b == tagInt32:
		return Entry{Int: int64(int32(binary.LittleEndian.Uint32(buf[off+1 : off+5])))}, 5
	case b == tagInt64:
		return Entry{Int: int64(binary.LittleEndian.Uint64(buf[off+1 : off+9]))}, 9
	case b >= tagIntImm && b <= 0xFD:
		return Entry{Int: int64(b - tagIntImm)}, 1
	default:
		panic(fmt.Sprintf("ziplist: corrupt entry tag 0x%02x at offset %d", b, off))
	}
}

// entryAt returns the decoded entry at buffer offset off, and the offset
// of the entry immediately following it.
func entryAt(buf []byte, off int) (Entry, int) {
	_, prevlenWidth := readPrevlen(buf, off)
	e, tagWidth := decodeEntryTag(buf, off+prevlenWidth)
	return e, off + prevlenWidth + tagWidth
}

// entryTotalSize returns the on-wire size (prevlen + tag + payload) of
// the entry starting at off.
func entryTotalSize(buf []byte, off int) int {
	_, prevlenWidth := readPrevlen(buf, off)
	_, tagWidth := decodeEntryTag(buf, off+prevlenWidth)
	return prevlenWidth + tagWidth
}

// Index returns the i-th entry (0-based). O(i).
func (l *List) Index(i int) (Entry, error) {
	if i < 0 || i >= l.Len() {
		return Entry{}, ErrOutOfRange
	}
	off := headerSize
	for n := 0; n < i; n++ {
		off += entryTotalSize(l.buf, off)
	}
	e, _ := entryAt(l.buf, off)
	return e, nil
}

// Find does a linear scan for the first entry equal to needle, returning
// its index or -1. O(N).
func (l *List) Find(needle []byte) int {
	off := headerSize
	for i := 0; i < l.Len(); i++ {
		e, next := entryAt(l.buf, off)
		if bytesEqual(e.Bytes(), needle) {
			return i
		}
		off = next
	}
	return -1
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

// All decodes every entry, front to back.
func (l *List) All() []Entry {
	out := make([]Entry, 0, l.Len())
	off := headerSize
	for i := 0; i < l.Len(); i++ {
		e, next := entryAt(l.buf, off)
		out = append(out, e)
		off = next
	}
	return out
}

// PushHead prepends an entry. O(N) due to the memmove.
func (l *List) PushHead(e Entry) {
	l.insertAt(0, e)
}

// PushTail appends an entry. O(N): like every insert, it re-encodes the
// whole buffer.
func (l *List) PushTail(e Entry) {
	l.insertAt(l.Len(), e)
}

// InsertBefore inserts e immediately before index i.
func (l *List) InsertBefore(i int, e Entry) error {
	if i < 0 || i > l.Len() {
		return ErrOutOfRange
	}
	l.insertAt(i, e)
	return nil
}

// InsertAfter inserts e immediately after index i.
func (l *List) InsertAfter(i int, e Entry) error {
	if i < 0 || i >= l.Len() {
		return ErrOutOfRange
	}
	l.insertAt(i+1, e)
	return nil
}

// insertAt rebuilds the buffer with e inserted at logical index i. This
// is the simplest faithful implementation of spec §4.1's "memmove and
// cascading prevlen update" rule: every entry from i onward is
// re-encoded, which naturally performs the cascade (a prevlen field that
// crosses the 1/5-byte threshold is recomputed along with everything
// else) rather than attempting an in-place splice.
func (l *List) insertAt(i int, e Entry) {
	entries := l.All()
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries[:i]...)
	out = append(out, e)
	out = append(out, entries[i:]...)
	l.rebuild(out)
}

// Delete removes the entry at index i.
func (l *List) Delete(i int) error {
	if i < 0 || i >= l.Len() {
		return ErrOutOfRange
	}
	entries := l.All()
	entries = append(entries[:i], entries[i+1:]...)
	l.rebuild(entries)
	return nil
}

// DeleteRange removes count entries starting at index i.
func (l *List) DeleteRange(i, count int) error {
	if i < 0 || count < 0 || i+count > l.Len() {
		return ErrOutOfRange
	}
	entries := l.All()
	entries = append(entries[:i], entries[i+count:]...)
	l.rebuild(entries)
	return nil
}

// rebuild re-encodes the whole entry sequence from scratch. prevEntrySize
// tracks the total on-wire size (prevlen + tag + payload) of the entry
// just written, which is exactly the value the *next* entry's prevlen
// field must hold; this is what makes the 1-to-5-byte prevlen cascade
// (spec §4.1) fall out for free instead of needing special-case handling.
func (l *List) rebuild(entries []Entry) {
	prevEntrySize := 0
	size := headerSize
	for _, e := range entries {
		size += prevlenSize(prevEntrySize) + encodedEntrySize(e)
		prevEntrySize = prevlenSize(prevEntrySize) + encodedEntrySize(e)
	}

	buf := make([]byte, size)
	prevEntrySize = 0
	off := headerSize
	tailOffset := headerSize
	for _, e := range entries {
		start := off
		off += putPrevlen(buf[off:], prevEntrySize)
		off += encodeEntryTag(buf[off:], e)
		prevEntrySize = off - start
		tailOffset = start
	}

	l.buf = buf
	l.setTotalBytes(size)
	l.setTailOffset(tailOffset)
	l.setEntryCount(len(entries))
}
