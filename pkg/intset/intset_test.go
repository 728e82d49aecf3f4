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

package intset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInsertKeepsSortedAndDedups(t *testing.T) {
	s := New()
	for _, v := range []int64{5, 1, 3, 1, -2} {
		s.Insert(v)
	}
	want := []int64{-2, 1, 3, 5}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 4 {
		t.Fatalf("Len() = %d; want 4", s.Len())
	}
}

func TestInsertReportsNewness(t *testing.T) {
	s := New()
	if !s.Insert(10) {
		t.Fatal("first insert of 10 should report true")
	}
	if s.Insert(10) {
		t.Fatal("second insert of 10 should report false")
	}
}

func TestFind(t *testing.T) {
	s := New()
	for _, v := range []int64{1, 2, 3} {
		s.Insert(v)
	}
	if !s.Find(2) {
		t.Error("Find(2) = false; want true")
	}
	if s.Find(99) {
		t.Error("Find(99) = true; want false")
	}
}

func TestRemove(t *testing.T) {
	s := New()
	for _, v := range []int64{1, 2, 3} {
		s.Insert(v)
	}
	if !s.Remove(2) {
		t.Fatal("Remove(2) = false; want true")
	}
	if s.Remove(2) {
		t.Fatal("second Remove(2) = true; want false")
	}
	want := []int64{1, 3}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("All() after remove mismatch (-want +got):\n%s", diff)
	}
}

func TestWidthPromotion(t *testing.T) {
	s := New()
	if s.Width() != Width16 {
		t.Fatalf("initial width = %d; want Width16", s.Width())
	}
	s.Insert(100)
	if s.Width() != Width16 {
		t.Fatalf("width after small insert = %d; want Width16", s.Width())
	}
	s.Insert(1 << 20)
	if s.Width() != Width32 {
		t.Fatalf("width after 32-bit insert = %d; want Width32", s.Width())
	}
	s.Insert(1 << 40)
	if s.Width() != Width64 {
		t.Fatalf("width after 64-bit insert = %d; want Width64", s.Width())
	}
	// Width never shrinks on removal.
	s.Remove(1 << 40)
	if s.Width() != Width64 {
		t.Fatalf("width after removing the 64-bit value = %d; want it to stay Width64", s.Width())
	}
}

func TestBytesRoundTrip(t *testing.T) {
	s := New()
	for _, v := range []int64{-5, 0, 1 << 20, 1 << 40, 42} {
		s.Insert(v)
	}
	s2 := FromBytes(s.Bytes())
	if diff := cmp.Diff(s.All(), s2.All()); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
	if s2.Width() != s.Width() {
		t.Errorf("round-trip width = %d; want %d", s2.Width(), s.Width())
	}
}

func TestRandomReturnsMember(t *testing.T) {
	s := New()
	for _, v := range []int64{1, 2, 3, 4, 5} {
		s.Insert(v)
	}
	for i := 0; i < 20; i++ {
		if !s.Find(s.Random()) {
			t.Fatalf("Random() returned non-member")
		}
	}
}
