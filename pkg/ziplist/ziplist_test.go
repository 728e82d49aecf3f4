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

package ziplist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPushAndIndex(t *testing.T) {
	l := New()
	l.PushTail(Str([]byte("a")))
	l.PushTail(Int(42))
	l.PushHead(Str([]byte("head")))

	if got, want := l.Len(), 3; got != want {
		t.Fatalf("Len() = %d; want %d", got, want)
	}
	want := []Entry{Str([]byte("head")), Str([]byte("a")), Int(42)}
	for i, w := range want {
		e, err := l.Index(i)
		if err != nil {
			t.Fatalf("Index(%d) error: %v", i, err)
		}
		if diff := cmp.Diff(w, e); diff != "" {
			t.Errorf("Index(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestFindAndDelete(t *testing.T) {
	l := New()
	l.PushTail(Str([]byte("x")))
	l.PushTail(Str([]byte("y")))
	l.PushTail(Str([]byte("z")))

	if i := l.Find([]byte("y")); i != 1 {
		t.Fatalf("Find(y) = %d; want 1", i)
	}
	if i := l.Find([]byte("missing")); i != -1 {
		t.Fatalf("Find(missing) = %d; want -1", i)
	}

	if err := l.Delete(1); err != nil {
		t.Fatalf("Delete(1): %v", err)
	}
	all := l.All()
	want := []Entry{Str([]byte("x")), Str([]byte("z"))}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("All() mismatch after delete (-want +got):\n%s", diff)
	}
}

func TestInsertBeforeAfter(t *testing.T) {
	l := New()
	l.PushTail(Int(1))
	l.PushTail(Int(3))
	if err := l.InsertAfter(0, Int(2)); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	if err := l.InsertBefore(0, Int(0)); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	var got []int64
	for _, e := range l.All() {
		got = append(got, e.Int)
	}
	want := []int64{0, 1, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

// TestPrevlenCascade exercises the 1-byte/5-byte prevlen boundary by
// appending an entry over the 254-byte threshold between small ones, so
// the entry after it needs a 5-byte prevlen field.
func TestPrevlenCascade(t *testing.T) {
	l := New()
	small := make([]byte, 10)
	big := make([]byte, 300)
	for i := range big {
		big[i] = byte(i)
	}
	l.PushTail(Str(small))
	l.PushTail(Str(small))
	l.PushTail(Str(big))
	l.PushTail(Str(small))

	all := l.All()
	if len(all) != 4 {
		t.Fatalf("Len = %d; want 4", len(all))
	}
	if diff := cmp.Diff(big, all[2].Str); diff != "" {
		t.Errorf("big entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(small, all[3].Str); diff != "" {
		t.Errorf("trailing small entry mismatch after cascade (-want +got):\n%s", diff)
	}
}

func TestIntegerWidthSelection(t *testing.T) {
	cases := []struct {
		v        int64
		wantSize int
	}{
		{0, 1},
		{12, 1},
		{13, 2},
		{-100, 2},
		{1000, 3},
		{70000, 4},
		{1 << 30, 5},
		{1 << 40, 9},
	}
	for _, c := range cases {
		l := New()
		l.PushTail(Int(c.v))
		e, err := l.Index(0)
		if err != nil {
			t.Fatalf("Index(0) for %d: %v", c.v, err)
		}
		if !e.IsInt() || e.Int != c.v {
			t.Fatalf("round-trip of %d got %+v", c.v, e)
		}
		if got := encodedEntrySize(Int(c.v)); got != c.wantSize {
			t.Errorf("encodedEntrySize(%d) = %d; want %d", c.v, got, c.wantSize)
		}
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	l := New()
	l.PushTail(Str([]byte("hello")))
	l.PushTail(Int(7))

	l2, err := FromBytes(l.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if diff := cmp.Diff(l.All(), l2.All()); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}
